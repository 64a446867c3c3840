// Package main provides a CLI tool for creating the shop schema and loading
// the shop fixtures into PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"querykit/internal/config"
	"querykit/internal/infrastructure/storage/postgres"
	"querykit/internal/shop"
	"querykit/pkg/logger"
)

var (
	configPath string
	drop       bool
)

var rootCmd = &cobra.Command{
	Use:           "querykit-seed",
	Short:         "Create the shop tables and load the fixture dataset",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Storage.DSN == "" {
			return errors.New("storage.dsn (QUERYKIT_STORAGE_DSN) is required")
		}

		log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		return seed(logger.WithLogger(cmd.Context(), log), cfg, log)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file")
	rootCmd.Flags().BoolVar(&drop, "drop", false, "drop the shop tables before creating them")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Storage.DSN))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	loader := postgres.NewLoader(postgres.NewTxManager(pool, cfg.Storage.StatementTimeout))

	if drop {
		if err := loader.Exec(ctx, shop.DropStatements()...); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
		log.Info("dropped shop tables")
	}
	if err := loader.Exec(ctx, shop.SchemaStatements()...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	for _, tbl := range shop.Fixtures().Tables() {
		if err := loader.Insert(ctx, tbl.Table, tbl.Rows...); err != nil {
			return fmt.Errorf("seed %s: %w", tbl.Table, err)
		}
		log.Infow("seeded table", "table", tbl.Table, "rows", len(tbl.Rows))
	}

	log.Info("seeding completed successfully")
	return nil
}
