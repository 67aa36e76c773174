// ABOUTME: CLI command for copying data between storage backends.
// ABOUTME: Reads from the configured backend and writes to the --to-* target.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sidewalklabs/commonspace-sub000/internal/config"
	"github.com/sidewalklabs/commonspace-sub000/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateToBackend string
	migrateToDataDir string
	migrateToDSN     string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy all data to another backend",
	Long: `Copy every study, survey and data point from the configured backend to
another one. Study tables are provisioned on the destination as studies are
copied.

IMPORTANT:

  - The destination should be empty; existing studies cause an error
  - The source is left unchanged

USAGE:

  commonspace migrate --to-backend postgres --to-dsn postgres://user@host/db
  commonspace --backend postgres --dsn ... migrate --to-backend sqlite --to-data-dir ./backup`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dstCfg := &config.Config{
			Backend: migrateToBackend,
			DataDir: migrateToDataDir,
			DSN:     migrateToDSN,
		}
		if dstCfg.GetBackend() == cfg.GetBackend() && dstCfg.Target() == cfg.Target() {
			return fmt.Errorf("source and destination are the same")
		}

		dst, err := dstCfg.OpenStorage(cmd.Context(), log, storeMetrics)
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		defer dst.Close()

		summary, err := storage.MigrateData(cmd.Context(), repo, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.GreenString("✓ Migrated to %s", dstCfg.GetBackend()))
		fmt.Fprintf(out, "  studies     %d\n", summary.Studies)
		fmt.Fprintf(out, "  surveys     %d\n", summary.Surveys)
		fmt.Fprintf(out, "  data points %d\n", summary.DataPoints)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateToBackend, "to-backend", "", "destination backend: sqlite or postgres")
	migrateCmd.Flags().StringVar(&migrateToDataDir, "to-data-dir", "", "destination directory (sqlite)")
	migrateCmd.Flags().StringVar(&migrateToDSN, "to-dsn", "", "destination connection string (postgres)")
	rootCmd.AddCommand(migrateCmd)
}
