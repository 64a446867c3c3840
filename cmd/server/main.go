// Package main is the entry point of the querykit API server and its
// inspection commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"querykit/internal/config"
	"querykit/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "querykit",
	Short:         "Declarative filtering, ordering and pagination over the shop catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd(), flattenCmd(), sqlCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, log, nil
}
