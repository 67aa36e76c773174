// ABOUTME: CLI commands for recording and reading data points.
// ABOUTME: Supports add, save, show, list, and delete subcommands.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"github.com/sidewalklabs/commonspace-sub000/internal/storage"
	"github.com/spf13/cobra"
)

var (
	pointID     string
	pointJSON   string
	pointStudy  string
	pointSurvey string
	pointFields string
	pointAsJSON bool
)

var pointCmd = &cobra.Command{
	Use:     "point",
	Aliases: []string{"p"},
	Short:   "Record and read data points",
	Long: `Data points are sparse observations. Give any subset of fields as
field=value arguments, or as a JSON object with --json.

VALUES:

  enumerated fields   one of the values shown by 'commonspace fields'
  array fields        comma separated values, e.g. activities=idle,pets
  location            lng,lat or a GeoJSON geometry
  notes               free text

COMMANDS:

  add      Insert a new data point (fails if the id exists)
  save     Insert or update a data point; only given fields change
  show     Show one data point projected onto the study's fields
  list     List data points projected onto the study's fields
  delete   Delete a data point`,
}

// buildRecord merges --json and field=value arguments into a record.
func buildRecord(args []string) (models.Record, error) {
	rec := models.Record{}
	if err := mergeJSON(rec, pointJSON); err != nil {
		return nil, err
	}
	if err := parseAssignments(rec, args); err != nil {
		return nil, err
	}
	return rec, nil
}

var pointAddCmd = &cobra.Command{
	Use:   "add <study-id> <survey-id> [field=value...]",
	Short: "Insert a new data point",
	Long: `Insert a new data point.

Examples:
  commonspace point add plaza-2024 <survey-id> gender=female posture=sitting
  commonspace point add plaza-2024 <survey-id> activities=idle,pets location=-73.99,40.73
  commonspace point add plaza-2024 <survey-id> --json '{"age":"25-64","notes":"bench"}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := buildRecord(args[2:])
		if err != nil {
			return err
		}
		if pointID != "" {
			rec[models.ColumnDataPointID] = pointID
		}
		if rec.DataPointID() == "" {
			rec[models.ColumnDataPointID] = models.NewRecord().DataPointID()
		}

		if err := repo.AddDataPoint(cmd.Context(), args[0], args[1], rec); err != nil {
			return fmt.Errorf("failed to add data point: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.GreenString("✓ Added data point"))
		fmt.Fprintf(out, "  %s\n", color.New(color.Faint).Sprint(rec.DataPointID()))
		return nil
	},
}

var pointSaveCmd = &cobra.Command{
	Use:   "save <survey-id> <data-point-id> [field=value...]",
	Short: "Insert or update a data point",
	Long: `Insert or update a data point. Fields not given keep their stored values.

Example:
  commonspace point save <survey-id> <data-point-id> posture=standing`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := buildRecord(args[2:])
		if err != nil {
			return err
		}
		rec[models.ColumnDataPointID] = args[1]

		if err := repo.SaveDataPoint(cmd.Context(), args[0], rec); err != nil {
			return fmt.Errorf("failed to save data point: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Saved data point %s", args[1]))
		return nil
	},
}

var pointShowCmd = &cobra.Command{
	Use:   "show <survey-id> <data-point-id>",
	Short: "Show one data point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := repo.GetDataPoint(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), p)
	},
}

var pointListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List data points of a study or survey",
	Long: `List data points. Only the study's selected fields are shown unless
--fields overrides the projection.

Examples:
  commonspace point list --study plaza-2024
  commonspace point list --survey <survey-id> --fields gender,notes
  commonspace point list --study plaza-2024 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pointStudy == "" && pointSurvey == "" {
			return fmt.Errorf("--study or --survey is required")
		}
		fields, err := models.ParseFields(splitList(pointFields))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		points, err := repo.ListDataPoints(ctx, storage.Query{
			StudyID:  pointStudy,
			SurveyID: pointSurvey,
			Fields:   fields,
		})
		if err != nil {
			return fmt.Errorf("failed to list data points: %w", err)
		}

		out := cmd.OutOrStdout()
		if pointAsJSON {
			if points == nil {
				points = []*models.DataPoint{}
			}
			return writeJSON(out, points)
		}
		if len(points) == 0 {
			fmt.Fprintln(out, "No data points found.")
			return nil
		}

		if len(fields) == 0 {
			fields, err = projectedFields(cmd, pointStudy, pointSurvey)
			if err != nil {
				return err
			}
		}

		faint := color.New(color.Faint)
		for _, p := range points {
			var parts []string
			for _, f := range fields {
				if v, ok := p.Fields[f]; ok {
					parts = append(parts, fmt.Sprintf("%s=%s", f, formatValue(v)))
				}
			}
			fmt.Fprintf(out, "%s %s %s\n",
				faint.Sprint(shortID(p.ID)),
				faint.Sprint(p.CreationDate.Format("2006-01-02 15:04")),
				strings.Join(parts, " "))
		}
		return nil
	},
}

// projectedFields returns the selected fields of the study being listed.
func projectedFields(cmd *cobra.Command, studyID, surveyID string) ([]models.FieldName, error) {
	ctx := cmd.Context()
	if studyID == "" {
		sv, err := repo.GetSurvey(ctx, surveyID)
		if err != nil {
			return nil, err
		}
		studyID = sv.StudyID
	}
	s, err := repo.GetStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}
	return s.Fields, nil
}

var pointDeleteCmd = &cobra.Command{
	Use:     "delete <survey-id> <data-point-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a data point",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repo.DeleteDataPoint(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to delete data point: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Deleted data point %s", args[1]))
		return nil
	},
}

func init() {
	pointAddCmd.Flags().StringVar(&pointID, "id", "", "data point id (default: generated UUID)")
	pointAddCmd.Flags().StringVar(&pointJSON, "json", "", "fields as a JSON object")
	pointSaveCmd.Flags().StringVar(&pointJSON, "json", "", "fields as a JSON object")

	pointListCmd.Flags().StringVar(&pointStudy, "study", "", "study id")
	pointListCmd.Flags().StringVar(&pointSurvey, "survey", "", "survey id")
	pointListCmd.Flags().StringVar(&pointFields, "fields", "", "comma separated projection override")
	pointListCmd.Flags().BoolVar(&pointAsJSON, "json", false, "print JSON")

	pointCmd.AddCommand(pointAddCmd, pointSaveCmd, pointShowCmd, pointListCmd, pointDeleteCmd)
	rootCmd.AddCommand(pointCmd)
}
