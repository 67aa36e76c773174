// ABOUTME: Root Cobra command for the commonspace CLI.
// ABOUTME: Opens the configured storage backend via PersistentPre/PostRunE.
package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sidewalklabs/commonspace-sub000/internal/config"
	"github.com/sidewalklabs/commonspace-sub000/internal/logger"
	"github.com/sidewalklabs/commonspace-sub000/internal/metrics"
	"github.com/sidewalklabs/commonspace-sub000/internal/storage"
	"github.com/spf13/cobra"
)

var (
	repo         storage.Repository
	cfg          *config.Config
	log          = zerolog.Nop()
	storeMetrics *metrics.Metrics

	flagBackend   string
	flagDataDir   string
	flagDSN       string
	flagLogLevel  string
	flagLogPretty bool
)

// top-level commands that never touch storage
var storeless = map[string]bool{
	"help":       true,
	"fields":     true,
	"completion": true,
	"__complete": true,
}

func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c.HasParent(); c = c.Parent() {
		if !c.Parent().HasParent() {
			return !storeless[c.Name()]
		}
	}
	return false
}

var rootCmd = &cobra.Command{
	Use:   "commonspace",
	Short: "Public life field-data collection store",
	Long: `Commonspace stores observations collected during public life studies.

A study selects which observation fields it records. Each study gets its own
table holding the full field catalog; surveys belong to a study and data points
belong to a survey. Data points are sparse: any subset of fields may be set.

QUICK START:

  $ commonspace fields                                   # See the field catalog
  $ commonspace study create "Main St" --owner me --fields gender,location
  $ commonspace survey create <study-id> --title morning
  $ commonspace point add <study-id> <survey-id> gender=female location=-73.99,40.73
  $ commonspace point list --study <study-id>

BACKENDS:

  sqlite     Embedded database at ~/.local/share/commonspace/commonspace.db (default)
  postgres   PostgreSQL with PostGIS; set --dsn or COMMONSPACE_DSN

  Settings come from ~/.config/commonspace/config.json, then COMMONSPACE_*
  environment variables, then command-line flags.

MCP INTEGRATION:

  Run 'commonspace mcp' to start the Model Context Protocol server:

  {
    "mcpServers": {
      "commonspace": { "command": "commonspace", "args": ["mcp"] }
    }
  }`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsStore(cmd) {
			return nil
		}
		// A failed RunE skips PersistentPostRunE.
		if repo != nil {
			_ = repo.Close()
			repo = nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log = logger.Component(logger.New(cfg.LoggerConfig()), "cli")
		storeMetrics = metrics.New()

		repo, err = cfg.OpenStorage(cmd.Context(), log, storeMetrics)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repo != nil {
			err := repo.Close()
			repo = nil
			return err
		}
		return nil
	},
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagBackend != "" {
		c.Backend = flagBackend
	}
	if flagDataDir != "" {
		c.DataDir = flagDataDir
	}
	if flagDSN != "" {
		c.DSN = flagDSN
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if flagLogPretty {
		c.LogPretty = true
	}
	return c, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBackend, "backend", "", "storage backend: sqlite or postgres")
	pf.StringVar(&flagDataDir, "data-dir", "", "directory for the sqlite database")
	pf.StringVar(&flagDSN, "dsn", "", "PostgreSQL connection string")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error, disabled")
	pf.BoolVar(&flagLogPretty, "log-pretty", false, "human-readable log output")
}
