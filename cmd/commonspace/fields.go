// ABOUTME: CLI command listing the observation field catalog.
// ABOUTME: Shows each field's storage type and allowed values.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"github.com/spf13/cobra"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the observation field catalog",
	Long: `List every field a study can select.

Enumerated fields accept only the listed values. Array fields take several
values; on the command line separate them with commas. The location field
takes "lng,lat" or a GeoJSON geometry.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)
		for _, d := range models.AllFields() {
			fmt.Fprintf(out, "%s %s %s\n",
				padRight(string(d.Name), 12),
				faint.Sprint(padRight(d.ColumnType.String(), 22)),
				strings.Join(d.Values, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
