// ABOUTME: CLI command checking that study metadata and study tables agree.
// ABOUTME: Optionally provisions missing tables and drops orphaned ones.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var doctorRepair bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check study tables against study metadata",
	Long: `Report studies whose table is missing and study tables with no study.

With --repair, missing tables are provisioned and orphaned tables are dropped.
Dropping an orphaned table deletes the data points it holds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		report, err := repo.CheckParity(ctx)
		if err != nil {
			return err
		}
		if report.OK() {
			fmt.Fprintln(out, color.GreenString("✓ Every study has its table"))
			return nil
		}

		for _, id := range report.MissingTables {
			fmt.Fprintf(out, "%s study %s has no table\n", color.RedString("✗"), id)
		}
		for _, table := range report.OrphanTables {
			fmt.Fprintf(out, "%s table %s has no study\n", color.RedString("✗"), table)
		}

		if !doctorRepair {
			return fmt.Errorf("found %d problems (run with --repair to fix)",
				len(report.MissingTables)+len(report.OrphanTables))
		}

		fixed, err := repo.RepairParity(ctx)
		if err != nil {
			return fmt.Errorf("repair failed: %w", err)
		}
		fmt.Fprintln(out, color.GreenString("✓ Provisioned %d tables, dropped %d orphans",
			len(fixed.MissingTables), len(fixed.OrphanTables)))
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorRepair, "repair", false, "fix the problems found")
	rootCmd.AddCommand(doctorCmd)
}
