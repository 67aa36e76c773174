// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs stdio MCP and optionally serves Prometheus metrics over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpMetricsAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout.

AVAILABLE TOOLS:

  list_fields          List the field catalog
  create_study         Create a study and provision its table
  list_studies         List studies
  update_study_fields  Change a study's field selection
  delete_study         Delete a study and its data
  create_survey        Create a survey for a study
  add_data_point       Insert a new data point
  save_data_point      Insert or update a data point
  list_data_points     List data points of a study or survey
  delete_data_point    Delete a data point

AVAILABLE RESOURCES:

  commonspace://fields    Field catalog
  commonspace://studies   Studies with survey counts

METRICS:

  With --metrics-addr (e.g. :9090) store operation metrics are served at
  /metrics and a liveness check at /health.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(repo, log)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if mcpMetricsAddr != "" {
			srv := &http.Server{
				Addr:              mcpMetricsAddr,
				Handler:           storeMetrics.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				log.Info().Str("addr", mcpMetricsAddr).Msg("serving metrics")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("metrics server failed")
					cancel()
				}
			}()
			defer func() {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(mcpCmd)
}
