// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package dbmanager is the single chokepoint for every SQL statement in the
// platform (spec §4.1). It wraps a pgxpool.Pool with retrying, health
// monitoring, and per-query row-level-security context propagation. Both
// execution modes run every call on a connection acquired from that pool.
package dbmanager

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row is the minimal result-row shape returned by FetchOne/FetchAll. It
// mirrors pgx.Rows' Scan contract without leaking pgx types into callers
// that only need a generic map of column -> value.
type Row map[string]any

// execQueryer is the subset of *pgxpool.Conn / pgx.Tx that Exec/FetchOne/
// FetchAll run statements against, whether or not an explicit RLS
// transaction is in play.
type execQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Manager is the shared, health-monitored connection pool.
type Manager struct {
	cfg    Config
	pool   *pgxpool.Pool
	health *healthTracker
	cancel context.CancelFunc
}

// New constructs a Manager, opening a pool (in either execution mode), and
// starts the health-check loop.
func New(ctx context.Context, cfg Config) (*Manager, error) {
	cfg = cfg.WithDefaults()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dbmanager: %w", err)
	}

	hctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:    cfg,
		pool:   pool,
		health: &healthTracker{},
		cancel: cancel,
	}
	go m.healthLoop(hctx)
	return m, nil
}

// Close releases the pool and stops the health loop.
func (m *Manager) Close() {
	m.cancel()
	m.pool.Close()
}

// Mode reports the manager's configured execution mode.
func (m *Manager) Mode() ExecutionMode { return m.cfg.Mode }

// acquire returns a connection from the pool. The configured mode does not
// change this: ModePooled and ModeOneShot both acquire from the same pool,
// and the caller releases the connection immediately after use. No
// separate direct connection is dialed per call.
func (m *Manager) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return m.pool.Acquire(ctx)
}

// Exec runs a non-returning write, applying rls first when supplied.
//
// set_config's third argument ("is_local") only holds for the current
// transaction; sent as two separate autocommit statements it would revert
// before the user statement ever saw it. So whenever rls is non-nil this
// opens an explicit transaction spanning both the set_config calls and the
// statement itself, exactly as WithTx does for its closure.
func (m *Manager) Exec(ctx context.Context, sql string, args []any, rls *RLSContext) error {
	return withRetry(ctx, m.cfg, func() error {
		conn, err := m.acquire(ctx)
		if err != nil {
			m.health.recordCall(err)
			return err
		}
		defer conn.Release()

		cctx, cancel := context.WithTimeout(ctx, m.cfg.CommandTimeout)
		defer cancel()

		err = m.withRLSConn(cctx, conn, rls, func(q execQueryer) error {
			_, execErr := q.Exec(cctx, sql, args...)
			return execErr
		})
		m.health.recordCall(err)
		return err
	})
}

// FetchOne runs a query expected to return at most one row.
func (m *Manager) FetchOne(ctx context.Context, sql string, args []any, rls *RLSContext) (Row, error) {
	var result Row
	err := withRetry(ctx, m.cfg, func() error {
		conn, err := m.acquire(ctx)
		if err != nil {
			m.health.recordCall(err)
			return err
		}
		defer conn.Release()

		cctx, cancel := context.WithTimeout(ctx, m.cfg.CommandTimeout)
		defer cancel()

		err = m.withRLSConn(cctx, conn, rls, func(q execQueryer) error {
			rows, qErr := q.Query(cctx, sql, args...)
			if qErr != nil {
				return qErr
			}
			defer rows.Close()
			result, qErr = scanOne(rows)
			return qErr
		})
		m.health.recordCall(err)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchAll runs a query and returns every row.
func (m *Manager) FetchAll(ctx context.Context, sql string, args []any, rls *RLSContext) ([]Row, error) {
	var result []Row
	err := withRetry(ctx, m.cfg, func() error {
		conn, err := m.acquire(ctx)
		if err != nil {
			m.health.recordCall(err)
			return err
		}
		defer conn.Release()

		cctx, cancel := context.WithTimeout(ctx, m.cfg.CommandTimeout)
		defer cancel()

		err = m.withRLSConn(cctx, conn, rls, func(q execQueryer) error {
			rows, qErr := q.Query(cctx, sql, args...)
			if qErr != nil {
				return qErr
			}
			defer rows.Close()
			result, qErr = scanAll(rows)
			return qErr
		})
		m.health.recordCall(err)
		return err
	})
	return result, err
}

// withRLSConn runs fn against conn directly when rls is nil, or — because
// set_config's "is_local" argument only survives for the current
// transaction — opens an explicit transaction spanning both the two
// set_config calls and fn's own statement when rls is supplied, committing
// on success and rolling back on any failure. Exec/FetchOne/FetchAll all
// funnel through this so the RLS context and the statement it protects are
// always one atomic unit (I5), matching WithTx's own invariant for
// multi-statement callers.
func (m *Manager) withRLSConn(ctx context.Context, conn *pgxpool.Conn, rls *RLSContext, fn func(execQueryer) error) error {
	if rls == nil {
		return fn(conn)
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	if err := applyRLS(ctx, tx, rls); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// FetchVal runs a query expected to return a single scalar column.
func (m *Manager) FetchVal(ctx context.Context, sql string, args []any, rls *RLSContext) (any, error) {
	row, err := m.FetchOne(ctx, sql, args, rls)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	for _, v := range row {
		return v, nil
	}
	return nil, nil
}

// Tx is the handle passed into WithTx closures. It deliberately exposes
// only Exec/Query so callers can't escape the RLS-bound connection.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := t.tx.Exec(ctx, sql, args...)
	return err
}

func (t *Tx) FetchAll(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (t *Tx) FetchOne(ctx context.Context, sql string, args ...any) (Row, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOne(rows)
}

// WithTx executes fn atomically on one connection, applying the RLS
// context once for the whole transaction (I5: RLS context is
// per-connection-per-operation, and a transaction is one operation).
func (m *Manager) WithTx(ctx context.Context, rls *RLSContext, fn func(*Tx) error) error {
	return withRetry(ctx, m.cfg, func() error {
		conn, err := m.acquire(ctx)
		if err != nil {
			m.health.recordCall(err)
			return err
		}
		defer conn.Release()

		cctx, cancel := context.WithTimeout(ctx, m.cfg.CommandTimeout)
		defer cancel()

		tx, err := conn.Begin(cctx)
		if err != nil {
			m.health.recordCall(err)
			return err
		}
		if err := applyRLS(cctx, tx, rls); err != nil {
			_ = tx.Rollback(cctx)
			m.health.recordCall(err)
			return err
		}
		if err := fn(&Tx{tx: tx}); err != nil {
			_ = tx.Rollback(cctx)
			m.health.recordCall(err)
			return err
		}
		err = tx.Commit(cctx)
		m.health.recordCall(err)
		return err
	})
}

func scanOne(rows pgx.Rows) (Row, error) {
	if !rows.Next() {
		return nil, rows.Err()
	}
	row, err := rowFromValues(rows)
	if err != nil {
		return nil, err
	}
	return row, rows.Err()
}

func scanAll(rows pgx.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		row, err := rowFromValues(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func rowFromValues(rows pgx.Rows) (Row, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()
	row := make(Row, len(fields))
	for i, f := range fields {
		row[string(f.Name)] = values[i]
	}
	return row, nil
}
