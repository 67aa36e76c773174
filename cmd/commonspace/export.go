// ABOUTME: CLI commands for exporting and importing study data.
// ABOUTME: Supports JSON and YAML full exports and per-study CSV.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"github.com/sidewalklabs/commonspace-sub000/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportStudy  string
	exportSurvey string
	exportFields string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export study data",
	Long: `Export study data in various formats.

FORMATS:

  json   Every study, survey and data point (suitable for backup/restore)
  yaml   The same as json, human-readable
  csv    Data points of one study or survey, one row per point

OPTIONS:

  --output, -o   Write to file instead of stdout
  --study        Study to export (csv only)
  --survey       Survey to export (csv only)
  --fields       Columns to export (csv only, default: the study's fields)

EXAMPLES:

  commonspace export json -o backup.json
  commonspace export yaml
  commonspace export csv --study plaza-2024 -o plaza.csv`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "csv"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var data []byte
		var err error

		switch args[0] {
		case "json":
			data, err = storage.ExportJSON(ctx, repo)
		case "yaml":
			data, err = storage.ExportYAML(ctx, repo)
		case "csv":
			if exportStudy == "" && exportSurvey == "" {
				return fmt.Errorf("csv export needs --study or --survey")
			}
			fields, ferr := models.ParseFields(splitList(exportFields))
			if ferr != nil {
				return ferr
			}
			var buf bytes.Buffer
			err = storage.ExportCSV(ctx, repo, storage.Query{
				StudyID:  exportStudy,
				SurveyID: exportSurvey,
				Fields:   fields,
			}, &buf)
			data = buf.Bytes()
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or csv)", args[0])
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Exported to %s", exportOutput))
			return nil
		}

		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import study data from a JSON or YAML export",
	Long: `Import studies, surveys and data points from a file written by
'commonspace export json' or 'commonspace export yaml'. Files ending in
.yaml or .yml are read as YAML.

Studies that already exist cause an error.

EXAMPLES:

  commonspace import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		switch strings.ToLower(filepath.Ext(filename)) {
		case ".yaml", ".yml":
			err = storage.ImportYAML(cmd.Context(), repo, data)
		default:
			err = storage.ImportJSON(cmd.Context(), repo, data)
		}
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Imported from %s", filename))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportStudy, "study", "", "study id (csv only)")
	exportCmd.Flags().StringVar(&exportSurvey, "survey", "", "survey id (csv only)")
	exportCmd.Flags().StringVar(&exportFields, "fields", "", "comma separated columns (csv only)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
