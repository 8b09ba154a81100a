// Package database owns the gateway's PostgreSQL access: one pgxpool pool
// shared by the audit repository, the query executor, and the schema
// extractor, plus the migration runner that keeps their schema current.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing defaults. The executor holds a connection for at most the
// statement timeout plus a grace second, so a modest pool covers the query
// surface; busier deployments override these through Config.
const (
	defaultMaxConns        = 25
	defaultConnMaxLifetime = time.Hour
	defaultConnMaxIdleTime = 30 * time.Minute

	// startupPingTimeout bounds the connectivity check in NewConnection so a
	// wrong URL fails fast at startup instead of on the first query.
	startupPingTimeout = 5 * time.Second
)

// DB is the shared connection pool handle.
type DB struct {
	*pgxpool.Pool
}

// Config carries pool settings. Zero values fall back to the defaults above.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewConnection builds the pool and verifies it with a bounded ping.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	applyPoolDefaults(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// applyPoolDefaults copies Config onto the parsed pool config, substituting
// the package defaults for unset values.
func applyPoolDefaults(poolConfig *pgxpool.Config, cfg *Config) {
	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = defaultMaxConns
	}

	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime <= 0 {
		poolConfig.MaxConnLifetime = defaultConnMaxLifetime
	}

	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime <= 0 {
		poolConfig.MaxConnIdleTime = defaultConnMaxIdleTime
	}
}

// Close releases the pool.
func (db *DB) Close() {
	db.Pool.Close()
}
