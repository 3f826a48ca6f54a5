// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package dbmanager

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// RLSContext carries the two session settings Postgres row-level-security
// policies key off. A nil UserID is set as a NULL literal, never an empty
// string, per invariant I5.
type RLSContext struct {
	UserID *string
	Role   string
}

// queryer is the subset of pgx.Tx / *pgxpool.Conn that RLS application
// needs. Callers pass the pgx.Tx they opened (WithTx, and Exec/FetchOne/
// FetchAll/FetchVal whenever rls is non-nil), since set_config's local
// setting only lasts for the current transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// applyRLS runs the two set_config calls on q, local to the current
// transaction (the "true" third argument), immediately before the caller's
// own statement on the same connection. It is never called across logical
// operations, so RLS context never leaks (invariant I5).
func applyRLS(ctx context.Context, q queryer, rls *RLSContext) error {
	if rls == nil {
		return nil
	}
	var userArg any
	if rls.UserID != nil {
		userArg = *rls.UserID
	}
	if _, err := q.Exec(ctx, `SELECT set_config('app.current_user_id', $1::text, true)`, userArg); err != nil {
		return fmt.Errorf("apply rls user id: %w", err)
	}
	if _, err := q.Exec(ctx, `SELECT set_config('app.current_user_role', $1::text, true)`, rls.Role); err != nil {
		return fmt.Errorf("apply rls role: %w", err)
	}
	return nil
}
