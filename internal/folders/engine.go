// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package folders

import (
	"context"

	"github.com/google/uuid"

	"github.com/northbound/triangle/internal/dbmanager"
)

// Engine resolves folder paths and performs the idempotent UPSERT that
// creates missing folders, against a shared dbmanager.Manager.
type Engine struct {
	db *dbmanager.Manager
}

// New constructs a folder hierarchy engine over db.
func New(db *dbmanager.Manager) *Engine {
	return &Engine{db: db}
}

// rlsFor builds the RLS context for a scope; global folders are resolved
// under the admin role and user/team folders under the member role. Since
// document_folders has RLS disabled
// per spec §6.2, but the RLS context is still threaded through so any
// future policy change is honored without code changes here.
func rlsFor(scope Scope) *dbmanager.RLSContext {
	role := "member"
	if scope.Kind == ScopeGlobal {
		role = "admin"
	}
	return &dbmanager.RLSContext{UserID: scope.UserID, Role: role}
}

// ResolvePath walks components level by level within scope. At each level
// the candidate row is (name, parent_folder_id = previous level's id or
// NULL). Returns (nil, nil) — not an error — when any level is missing, so
// callers can distinguish "not found" from a real failure and fall back to
// CreateOrGetFolder.
func (e *Engine) ResolvePath(ctx context.Context, scope Scope, components []string) (*string, error) {
	var parent *string
	for _, name := range components {
		if name == "" {
			continue
		}
		row, err := e.findLevel(ctx, scope, name, parent)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		id, _ := row["id"].(string)
		parent = &id
	}
	return parent, nil
}

func (e *Engine) findLevel(ctx context.Context, scope Scope, name string, parent *string) (dbmanager.Row, error) {
	sql, args := levelQuery(scope, name, parent)
	return e.db.FetchOne(ctx, sql, args, rlsFor(scope))
}

// levelQuery builds a NULL-safe lookup: every scoping column is compared
// with "IS NOT DISTINCT FROM" rather than "=" so a NULL parent/user/team id
// matches NULL candidates instead of silently matching nothing, per spec
// §4.2's "NULLs are matched with IS NULL, not =".
func levelQuery(scope Scope, name string, parent *string) (string, []any) {
	base := `SELECT id, name, parent_folder_id FROM document_folders
		WHERE name = $1 AND collection_kind = $2
		AND parent_folder_id IS NOT DISTINCT FROM $3
		AND user_id IS NOT DISTINCT FROM $4
		AND team_id IS NOT DISTINCT FROM $5`
	args := []any{name, string(scope.Kind), derefOrNil(parent), derefOrNil(scope.UserID), derefOrNil(scope.TeamID)}
	return base, args
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// NewFolderID generates a fresh opaque folder id.
func NewFolderID() string {
	return uuid.NewString()
}
