// Package cli implements the sdkdocs command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/config"
	"github.com/dshills/sdkdocs-mcp/internal/logger"
)

// version is stamped at build time via -ldflags "-X".
var version = "dev"

var (
	cfgFile  string
	dbPath   string
	logLevel string

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sdkdocs",
	Short: "SDK documentation search for AI coding assistants",
	Long: `sdkdocs indexes SDK documentation (structured API specs and narrative
guides) into searchable chunks and serves them to AI coding assistants
over the Model Context Protocol.

Point it at a documentation directory, index it, and search:

  sdkdocs index ./docs
  sdkdocs search "how do I subscribe to channel events"
  sdkdocs serve`,
	SilenceUsage:      true,
	PersistentPreRunE: initRoot,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initRoot loads .env, the config file, and the logger before any
// command runs. Flag overrides win over config and environment.
func initRoot(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.DBPath = dbPath
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	cfg = loaded
	log = logger.New(cfg.Log.Level)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
