package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/config"
)

var initForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default config file",
	RunE:  runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := saveConfig(config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("✓ Wrote default config to %s\n", path)
	return nil
}
