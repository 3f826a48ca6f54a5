// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package folders

import "context"

// Delete removes a folder row. Per spec §4.4 the database cascades the
// delete to child folders and documents; the caller is responsible for
// requesting the corresponding vector-store cleanup for any documents
// removed as a result.
func (e *Engine) Delete(ctx context.Context, scope Scope, folderID string) error {
	const sql = `DELETE FROM document_folders WHERE id = $1`
	return e.db.Exec(ctx, sql, []any{folderID}, rlsFor(scope))
}

// GetFolder reads a single folder row by id, including its inherited
// category/tags, for callers that need to apply folder inheritance (spec
// §4.5 step 8) without re-resolving a path.
func (e *Engine) GetFolder(ctx context.Context, scope Scope, folderID string) (*Folder, error) {
	const sql = `
		SELECT id, name, parent_folder_id, user_id, team_id, collection_kind,
			inherited_category, inherited_tags, inherit_tags, created_at, updated_at
		FROM document_folders
		WHERE id = $1`
	row, err := e.db.FetchOne(ctx, sql, []any{folderID}, rlsFor(scope))
	if err != nil {
		return nil, err
	}
	return folderFromRow(row), nil
}

// FolderPath reconstructs a folder's on-disk component chain by walking
// parent_folder_id up to the root, used by the startup reconciler to
// check whether a DB folder row still has a corresponding directory.
func (e *Engine) FolderPath(ctx context.Context, scope Scope, folderID string) ([]string, error) {
	var names []string
	current := &folderID
	for current != nil {
		row, err := e.db.FetchOne(ctx, `SELECT name, parent_folder_id FROM document_folders WHERE id = $1`, []any{*current}, rlsFor(scope))
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		name, _ := row["name"].(string)
		names = append([]string{name}, names...)
		if parent, ok := row["parent_folder_id"].(string); ok && parent != "" {
			current = &parent
		} else {
			current = nil
		}
	}
	return names, nil
}

// ListFolders returns every folder row within scope, for the startup
// reconciler's existence pass.
func (e *Engine) ListFolders(ctx context.Context, scope Scope) ([]*Folder, error) {
	const sql = `
		SELECT id, name, parent_folder_id, user_id, team_id, collection_kind,
			inherited_category, inherited_tags, inherit_tags, created_at, updated_at
		FROM document_folders
		WHERE collection_kind = $1 AND user_id IS NOT DISTINCT FROM $2 AND team_id IS NOT DISTINCT FROM $3`

	rows, err := e.db.FetchAll(ctx, sql, []any{string(scope.Kind), derefOrNil(scope.UserID), derefOrNil(scope.TeamID)}, rlsFor(scope))
	if err != nil {
		return nil, err
	}

	out := make([]*Folder, 0, len(rows))
	for _, row := range rows {
		out = append(out, folderFromRow(row))
	}
	return out, nil
}
