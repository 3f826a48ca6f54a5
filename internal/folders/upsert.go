// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package folders

import (
	"context"
	"fmt"
	"time"
)

// conflictTarget returns the ON CONFLICT clause for the six (root?, scope)
// combinations from spec §4.4's table. The partial unique indexes it names
// must exist in the schema migration with matching predicates.
func conflictTarget(isRoot bool, kind ScopeKind) string {
	switch {
	case isRoot && kind == ScopeTeam:
		return `(team_id, name, collection_kind) WHERE parent_folder_id IS NULL AND team_id IS NOT NULL`
	case isRoot && kind == ScopeUser:
		return `(user_id, name, collection_kind) WHERE parent_folder_id IS NULL AND user_id IS NOT NULL`
	case isRoot && kind == ScopeGlobal:
		return `(name, collection_kind) WHERE parent_folder_id IS NULL AND user_id IS NULL`
	case !isRoot && kind == ScopeTeam:
		return `(team_id, name, parent_folder_id, collection_kind) WHERE parent_folder_id IS NOT NULL AND team_id IS NOT NULL`
	case !isRoot && kind == ScopeUser:
		return `(user_id, name, parent_folder_id, collection_kind) WHERE parent_folder_id IS NOT NULL AND user_id IS NOT NULL`
	default: // !isRoot && ScopeGlobal
		return `(name, parent_folder_id, collection_kind) WHERE parent_folder_id IS NOT NULL AND user_id IS NULL`
	}
}

// CreateOrGetFolder issues the idempotent
// INSERT ... ON CONFLICT ... DO UPDATE SET updated_at = excluded.updated_at
// RETURNING * described in spec §4.4. Concurrent callers racing to create
// the same (scope, parent, name) converge on a single row (spec property
// 4: n concurrent create-or-get calls on the same n-level path yield the
// same folder id at every level).
func (e *Engine) CreateOrGetFolder(ctx context.Context, in CreateOrGetInput) (*Folder, error) {
	isRoot := in.ParentFolderID == nil
	target := conflictTarget(isRoot, in.Scope.Kind)

	id := NewFolderID()
	now := time.Now().UTC()

	sql := fmt.Sprintf(`
		INSERT INTO document_folders (id, name, parent_folder_id, user_id, team_id, collection_kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT %s
		DO UPDATE SET updated_at = excluded.updated_at
		RETURNING id, name, parent_folder_id, user_id, team_id, collection_kind, created_at, updated_at`, target)

	args := []any{
		id,
		in.Name,
		derefOrNil(in.ParentFolderID),
		derefOrNil(in.Scope.UserID),
		derefOrNil(in.Scope.TeamID),
		string(in.Scope.Kind),
		now,
	}

	row, err := e.db.FetchOne(ctx, sql, args, rlsFor(in.Scope))
	if err != nil {
		return nil, fmt.Errorf("create or get folder %q: %w", in.Name, err)
	}
	return folderFromRow(row), nil
}

// ResolveOrCreatePath resolves components under scope, creating any missing
// levels via CreateOrGetFolder. This is what upload/watcher callers use
// when a path must exist after the call returns.
func (e *Engine) ResolveOrCreatePath(ctx context.Context, scope Scope, components []string) (*string, error) {
	var parent *string
	for _, name := range components {
		if name == "" {
			continue
		}
		folder, err := e.CreateOrGetFolder(ctx, CreateOrGetInput{
			Name:           name,
			ParentFolderID: parent,
			Scope:          scope,
		})
		if err != nil {
			return nil, err
		}
		parent = &folder.ID
	}
	return parent, nil
}

func folderFromRow(row Row) *Folder {
	if row == nil {
		return nil
	}
	f := &Folder{
		Name:           stringField(row, "name"),
		CollectionKind: ScopeKind(stringField(row, "collection_kind")),
	}
	if v, ok := row["id"].(string); ok {
		f.ID = v
	}
	if v, ok := row["parent_folder_id"].(string); ok {
		f.ParentFolderID = &v
	}
	if v, ok := row["user_id"].(string); ok {
		f.UserID = &v
	}
	if v, ok := row["team_id"].(string); ok {
		f.TeamID = &v
	}
	if v, ok := row["inherited_category"].(string); ok {
		f.InheritedCategory = &v
	}
	if v, ok := row["inherited_tags"].([]string); ok {
		f.InheritedTags = v
	}
	if v, ok := row["inherit_tags"].(bool); ok {
		f.InheritTags = v
	}
	if v, ok := row["created_at"].(time.Time); ok {
		f.CreatedAt = v
	}
	if v, ok := row["updated_at"].(time.Time); ok {
		f.UpdatedAt = v
	}
	return f
}

func stringField(row Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

// Row is re-exported for readability in this file; it is dbmanager.Row.
type Row = map[string]any
