// ABOUTME: CLI commands for managing surveys.
// ABOUTME: Supports create, list, and delete subcommands.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"github.com/spf13/cobra"
)

var (
	surveyTitle    string
	surveyLocation string
	surveyor       string
	surveyStart    string
	surveyEnd      string
)

var surveyCmd = &cobra.Command{
	Use:     "survey",
	Aliases: []string{"sv"},
	Short:   "Manage surveys",
	Long: `Surveys group the data points collected for a study at one location
and time window. Deleting a survey deletes its data points.`,
}

var surveyCreateCmd = &cobra.Command{
	Use:   "create <study-id>",
	Short: "Create a survey for a study",
	Long: `Create a survey.

Examples:
  commonspace survey create plaza-2024 --title morning --surveyor sam@example.org
  commonspace survey create plaza-2024 --start "2024-05-01 08:00" --end "2024-05-01 10:00"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sv := models.NewSurvey(args[0], surveyTitle)
		if surveyLocation != "" {
			sv.WithLocation(surveyLocation)
		}
		if surveyor != "" {
			sv.WithSurveyor(surveyor)
		}
		if surveyStart != "" || surveyEnd != "" {
			start, err := parseTime(surveyStart)
			if err != nil {
				return fmt.Errorf("invalid --start: %s", surveyStart)
			}
			end, err := parseTime(surveyEnd)
			if err != nil {
				return fmt.Errorf("invalid --end: %s", surveyEnd)
			}
			if end.Before(start) {
				return fmt.Errorf("--end is before --start")
			}
			sv.WithWindow(start, end)
		}

		if err := repo.CreateSurvey(cmd.Context(), sv); err != nil {
			return fmt.Errorf("failed to create survey: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.GreenString("✓ Created survey"))
		fmt.Fprintf(out, "  %s study %s\n", color.New(color.Faint).Sprint(sv.ID), sv.StudyID)
		return nil
	},
}

var surveyListCmd = &cobra.Command{
	Use:     "list <study-id>",
	Aliases: []string{"ls"},
	Short:   "List the surveys of a study",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		surveys, err := repo.ListSurveys(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list surveys: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(surveys) == 0 {
			fmt.Fprintln(out, "No surveys found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, sv := range surveys {
			window := ""
			if sv.StartDate != nil && sv.EndDate != nil {
				window = fmt.Sprintf("%s → %s", sv.StartDate.Format("2006-01-02 15:04"), sv.EndDate.Format("15:04"))
			}
			fmt.Fprintf(out, "%s %s %s %s\n",
				faint.Sprint(sv.ID),
				padRight(truncate(sv.Title, 20), 20),
				padRight(sv.SurveyorEmail, 24),
				faint.Sprint(window))
		}
		return nil
	},
}

var surveyDeleteCmd = &cobra.Command{
	Use:     "delete <survey-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a survey and its data points",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repo.DeleteSurvey(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete survey: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Deleted survey %s", args[0]))
		return nil
	},
}

func init() {
	surveyCreateCmd.Flags().StringVar(&surveyTitle, "title", "", "survey title")
	surveyCreateCmd.Flags().StringVar(&surveyLocation, "location", "", "location identifier")
	surveyCreateCmd.Flags().StringVar(&surveyor, "surveyor", "", "surveyor email")
	surveyCreateCmd.Flags().StringVar(&surveyStart, "start", "", "window start (YYYY-MM-DD HH:MM)")
	surveyCreateCmd.Flags().StringVar(&surveyEnd, "end", "", "window end (YYYY-MM-DD HH:MM)")

	surveyCmd.AddCommand(surveyCreateCmd, surveyListCmd, surveyDeleteCmd)
	rootCmd.AddCommand(surveyCmd)
}
