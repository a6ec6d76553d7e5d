package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/itiky/offline-bridge/config"
	"github.com/itiky/offline-bridge/storage"
)

// loadConfig reads the --config flag and builds the effective configuration.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return config.Config{}, fmt.Errorf("%s flag: %w", FlagConfig, err)
	}

	return config.Load(path)
}

// openStorage opens the configured durable store (creating the SQLite data
// directory when needed).
func openStorage(cfg config.Config) (storage.Storage, error) {
	if cfg.DBDriver == storage.SQLiteDriver {
		if dir := filepath.Dir(cfg.DBDSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("data dir (%s): %w", dir, err)
			}
		}
	}

	return storage.NewSQLStore(cfg.DBDriver, cfg.DBDSN)
}
