// Package main provides the prflow CLI: the HTTP API server plus commands for
// ingesting press releases, managing checkpoints and browsing releases.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/prflow/internal/config"
	"github.com/jonathan/prflow/internal/db"
)

var rootCmd = &cobra.Command{
	Use:   "prflow",
	Short: "Press release ingestion and processing console",
	Long: `prflow ingests company press releases, stores them in PostgreSQL and decides which
releases may be handed to the processing pipeline.

Configuration can be loaded from a JSON file using --config. Command-line arguments override
config file values, which override the environment.`,
	SilenceUsage: true,
}

var (
	rootConfigPath  string
	rootDatabaseURL string
	rootVerbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().StringVar(&rootDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings in order: flags, config file, environment, defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if rootConfigPath != "" {
		loaded, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = rootDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = rootVerbose
	}

	cfg = cfg.MergeWithDefaults(config.FromEnv())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.Verbose && rootConfigPath != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Loaded config from: %s\n", rootConfigPath)
	}
	return cfg, nil
}

// openDB connects to the configured database.
func openDB(ctx context.Context, cfg config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url is required")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}
