// ABOUTME: CLI commands for managing studies.
// ABOUTME: Supports create, list, show, fields, and delete subcommands.
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
	studyOwner       string
	studyFields      string
	studyID          string
	studyDescription string
	studyType        string
)

var studyCmd = &cobra.Command{
	Use:     "study",
	Aliases: []string{"s"},
	Short:   "Manage studies",
	Long: `Create and manage studies.

Creating a study provisions a table named study_<id> holding every catalog
field. The study's field selection decides which fields are shown when data
points are listed; it can be changed later without touching the table.

COMMANDS:

  create   Create a study and provision its table
  list     List studies
  show     Show one study with its surveys
  fields   Change the selected fields
  delete   Delete a study, its surveys, and its data`,
}

var studyCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a study",
	Long: `Create a study.

Examples:
  commonspace study create "Main Street" --owner alice --fields gender,age,location
  commonspace study create "Plaza" --owner bob --id plaza-2024 --type movement`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := models.ParseFields(splitList(studyFields))
		if err != nil {
			return err
		}

		s := models.NewStudy(args[0], studyOwner, fields...)
		if studyID != "" {
			s.ID = studyID
		}
		if studyDescription != "" {
			s.WithDescription(studyDescription)
		}
		if studyType != "" {
			s.WithType(models.StudyType(studyType))
		}

		if err := repo.CreateStudy(cmd.Context(), s); err != nil {
			return fmt.Errorf("failed to create study: %w", err)
		}

		table, _ := storage.TableNameFor(s.ID)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.GreenString("✓ Created study %s", s.Title))
		fmt.Fprintf(out, "  %s table %s fields %s\n",
			color.New(color.Faint).Sprint(s.ID), table, models.FieldNamesString(s.Fields))
		return nil
	},
}

var studyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List studies",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		studies, err := repo.ListStudies(cmd.Context(), studyOwner)
		if err != nil {
			return fmt.Errorf("failed to list studies: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(studies) == 0 {
			fmt.Fprintln(out, "No studies found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, s := range studies {
			fmt.Fprintf(out, "%s %s %s %s\n",
				faint.Sprint(padRight(s.ID, 36)),
				padRight(truncate(s.Title, 30), 30),
				padRight(string(s.Status), 10),
				faint.Sprint(models.FieldNamesString(s.Fields)))
		}
		return nil
	},
}

var studyShowCmd = &cobra.Command{
	Use:   "show <study-id>",
	Short: "Show a study and its surveys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := repo.GetStudy(ctx, args[0])
		if err != nil {
			return err
		}
		surveys, err := repo.ListSurveys(ctx, s.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)
		fmt.Fprintln(out, color.New(color.Bold).Sprint(s.Title))
		fmt.Fprintf(out, "  id       %s\n", s.ID)
		fmt.Fprintf(out, "  owner    %s\n", s.OwnerID)
		fmt.Fprintf(out, "  type     %s\n", s.Type)
		fmt.Fprintf(out, "  status   %s\n", s.Status)
		fmt.Fprintf(out, "  fields   %s\n", models.FieldNamesString(s.Fields))
		if s.Description != nil {
			fmt.Fprintf(out, "  about    %s\n", *s.Description)
		}
		fmt.Fprintf(out, "  created  %s\n", s.CreatedAt.Format("2006-01-02 15:04"))

		fmt.Fprintf(out, "\nSurveys (%d):\n", len(surveys))
		for _, sv := range surveys {
			fmt.Fprintf(out, "  %s %s %s\n",
				faint.Sprint(sv.ID), padRight(sv.Title, 20), faint.Sprint(sv.SurveyorEmail))
		}
		return nil
	},
}

var studyFieldsCmd = &cobra.Command{
	Use:   "fields <study-id> <field,...>",
	Short: "Change which fields a study shows",
	Long: `Replace a study's field selection.

Only the selection changes; data stored for deselected fields is kept and
reappears if the field is selected again.

Example:
  commonspace study fields plaza-2024 gender,posture,location`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := models.ParseFields(splitList(args[1]))
		if err != nil {
			return err
		}
		if err := repo.UpdateStudyFields(cmd.Context(), args[0], fields); err != nil {
			return fmt.Errorf("failed to update fields: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Study %s now shows %s",
			args[0], strings.ReplaceAll(models.FieldNamesString(fields), ",", ", ")))
		return nil
	},
}

var studyDeleteCmd = &cobra.Command{
	Use:     "delete <study-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a study and all of its data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repo.DeleteStudy(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete study: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Deleted study %s", args[0]))
		return nil
	},
}

func init() {
	studyCreateCmd.Flags().StringVar(&studyOwner, "owner", "", "owner identifier")
	studyCreateCmd.Flags().StringVar(&studyFields, "fields", "", "comma separated catalog fields")
	studyCreateCmd.Flags().StringVar(&studyID, "id", "", "study id (default: generated UUID)")
	studyCreateCmd.Flags().StringVar(&studyDescription, "description", "", "study description")
	studyCreateCmd.Flags().StringVar(&studyType, "type", "", "stationary or movement")
	studyListCmd.Flags().StringVar(&studyOwner, "owner", "", "only studies of this owner")

	studyCmd.AddCommand(studyCreateCmd, studyListCmd, studyShowCmd, studyFieldsCmd, studyDeleteCmd)
	rootCmd.AddCommand(studyCmd)
}
