// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package dbmanager

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// openPool builds a pgxpool.Pool honoring the spec's pooling knobs.
// Grounded on intelligencedev-manifold's internal/persistence/databases
// newPgPool helper.
func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pcfg.MinConns = cfg.MinPoolSize
	pcfg.MaxConns = cfg.MaxPoolSize
	pcfg.MaxConnLifetime = cfg.ConnectionMaxAge
	pcfg.MaxConnIdleTime = cfg.MaxInactiveConnectionLifetime
	// pgxpool has no native "max queries per connection" knob; recycling on
	// ConnectionMaxAge is the closest equivalent and is what we expose.

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.CommandTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pool: %w", err)
	}
	return pool, nil
}
