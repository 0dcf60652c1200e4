package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abhisek/wordmine/internal/config"
	"github.com/abhisek/wordmine/internal/server"
	"github.com/abhisek/wordmine/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "wordmine",
	Short:         "Vocabulary session ingestion and gem mastery service",
	Long:          "Wordmine records completed vocabulary game sessions and tracks per-word mastery with spaced repetition.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./wordmine.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite file path (overrides WORDMINE_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite, postgres or pgx")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and environment, then applies the
// --db and --driver flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overridden := false
	if d, _ := cmd.Flags().GetString("driver"); d != "" {
		cfg.Database.Driver = d
		overridden = true
	}
	if dsn, _ := cmd.Flags().GetString("db"); dsn != "" {
		cfg.Database.DSN = dsn
		overridden = true
	}
	if overridden {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setup loads config and opens the store. The caller closes the store.
func setup(cmd *cobra.Command) (*config.Config, *logrus.Logger, *store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := server.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}

	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve database: %w", err)
	}
	if cfg.Database.Driver == store.DriverSQLite && !strings.HasPrefix(dsn, "file:") {
		if err := store.EnsureDir(dsn); err != nil {
			return nil, nil, nil, fmt.Errorf("resolve database: %w", err)
		}
	}

	st, err := store.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, logger, st, nil
}
