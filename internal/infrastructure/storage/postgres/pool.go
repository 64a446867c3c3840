// Package postgres executes compiled list plans against PostgreSQL.
// Predicates are lowered to squirrel expressions.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ApplicationName string

	// SlowQuery is the duration above which a statement is logged at warn.
	// Zero disables slow query logging.
	SlowQuery time.Duration
}

// DefaultPoolConfig returns defaults sized for a read-mostly API.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:             dsn,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ApplicationName: "querykit",
		SlowQuery:       500 * time.Millisecond,
	}
}

// Pool wraps pgxpool.Pool.
type Pool struct {
	*pgxpool.Pool
}

// Close closes all connections in the pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// NewPool connects and pings. Every connection reports ApplicationName and
// traces its statements through queryTracer.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.Tracer = &queryTracer{slow: cfg.SlowQuery}
	if cfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	TotalConns    int32
	AcquiredConns int32
	IdleConns     int32
	MaxConns      int32
	AcquireCount  int64
	AcquireWait   time.Duration
}

// Stats returns the current pool usage.
func (p *Pool) Stats() PoolStats {
	s := p.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		AcquiredConns: s.AcquiredConns(),
		IdleConns:     s.IdleConns(),
		MaxConns:      s.MaxConns(),
		AcquireCount:  s.AcquireCount(),
		AcquireWait:   s.AcquireDuration(),
	}
}

// Gauges exposes pool usage as named sampling functions for a metrics
// registry.
func (p *Pool) Gauges() map[string]func() float64 {
	return map[string]func() float64{
		"db_pool_total_conns":          func() float64 { return float64(p.Stats().TotalConns) },
		"db_pool_acquired_conns":       func() float64 { return float64(p.Stats().AcquiredConns) },
		"db_pool_idle_conns":           func() float64 { return float64(p.Stats().IdleConns) },
		"db_pool_max_conns":            func() float64 { return float64(p.Stats().MaxConns) },
		"db_pool_acquire_wait_seconds": func() float64 { return p.Stats().AcquireWait.Seconds() },
	}
}
