package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/config"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/database"
	"github.com/InfiniteAengus/vista-purdue-plot/internal/logging"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "purdueplot",
	Short: "Collect Purdue coordination diagram data from the VISTA signal API",
	Long: `purdueplot polls the VISTA traffic signal API once a minute and rewrites
green_lines.csv, yellow_lines.csv, red_lines.csv and dots.csv with the
points of a Purdue coordination diagram.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "snapshot archive (default is ./data.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the archive file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// openDB opens the snapshot archive
func openDB() (*database.DB, error) {
	path := getDBPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("configuring logger: %w", err)
	}
	return log, nil
}
