package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"querykit/internal/config"
	"querykit/internal/domain"
	v1 "querykit/internal/infrastructure/http/v1"
	"querykit/internal/infrastructure/http/v1/handlers"
	"querykit/internal/infrastructure/metrics"
	"querykit/internal/infrastructure/storage/memory"
	"querykit/internal/infrastructure/storage/postgres"
	"querykit/internal/shop"
	"querykit/pkg/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(logger.WithLogger(ctx, log), cfg, log)
		},
	}
}

// backend is a wired storage implementation.
type backend struct {
	repo  domain.Repository
	ping  handlers.Pinger
	close func()
}

func serve(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	log.Infow("starting querykit server", "backend", cfg.Storage.Backend)

	registry, err := shop.NewRegistry()
	if err != nil {
		return fmt.Errorf("build entity registry: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	b, err := openBackend(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer b.close()

	svcCfg := domain.QueryServiceConfig{Repo: b.repo, Entities: registry}
	if m != nil {
		svcCfg.Observer = m
	}
	svc := domain.NewQueryService(svcCfg)

	routerCfg := v1.RouterConfig{
		Service:     svc,
		Resources:   shop.Resources(),
		Schemas:     shop.Schemas(),
		Entities:    registry,
		Logger:      log,
		Health:      handlers.NewHealthHandler(string(cfg.Storage.Backend), b.ping),
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Gzip:        cfg.HTTP.Gzip,
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      v1.NewHandler(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, m *metrics.Metrics) (backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.Storage.DSN)
		poolCfg.MaxConns = cfg.Storage.MaxConns
		poolCfg.MinConns = cfg.Storage.MinConns
		poolCfg.SlowQuery = cfg.Storage.SlowQuery

		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return backend{}, fmt.Errorf("connect to database: %w", err)
		}
		if m != nil {
			registerPoolGauges(ctx, m, pool)
		}
		logger.Info(ctx, "database connection established", "max_conns", poolCfg.MaxConns)

		txm := postgres.NewTxManager(pool, cfg.Storage.StatementTimeout)
		return backend{repo: postgres.NewListRepo(txm), ping: pool, close: pool.Close}, nil

	default:
		store := memory.NewStore()
		if cfg.Storage.Seed {
			for _, tbl := range shop.Fixtures().Tables() {
				if err := store.Insert(tbl.Table, tbl.Rows...); err != nil {
					return backend{}, fmt.Errorf("load fixtures: %w", err)
				}
			}
			logger.Info(ctx, "memory store seeded with shop fixtures")
		}
		repo, err := memory.NewListRepo(store)
		if err != nil {
			return backend{}, err
		}
		return backend{repo: repo, close: func() {}}, nil
	}
}

func registerPoolGauges(ctx context.Context, m *metrics.Metrics, pool *postgres.Pool) {
	for name, fn := range pool.Gauges() {
		if err := m.GaugeFunc(name, "PostgreSQL connection pool usage.", fn); err != nil {
			logger.Warn(ctx, "pool gauge not registered", "gauge", name, "error", err)
		}
	}
}
