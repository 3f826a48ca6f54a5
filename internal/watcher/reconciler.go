// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package watcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/northbound/triangle/internal/documents"
	"github.com/northbound/triangle/internal/folders"
	"github.com/northbound/triangle/internal/parser"
)

// ReconcileCounts tallies the startup pass, logged at completion per spec
// §4.6.
type ReconcileCounts struct {
	Found                  int
	AlreadyTracked          int
	ImportedFolders         int
	RemovedMissingFolders   int
	RemovedMissingDocuments int
}

// rootScopes enumerates the scope roots the reconciler walks: user and
// global filesystem subtrees. Team folders are application-managed, not
// filesystem-managed, and are excluded from the disk-reconciliation pass
// per spec §4.6 step 3.
var rootScopes = []string{"Users", "Global"}

// RunReconciliation performs the "cavalry charge" startup pass: import
// folders, import files, delete folders missing from disk, delete
// documents missing from disk. It MUST complete before the live watcher
// starts.
func RunReconciliation(ctx context.Context, root string, docs *documents.Service, folderEngine *folders.Engine, log zerolog.Logger) error {
	counts := ReconcileCounts{}

	if err := importFolders(ctx, root, folderEngine, &counts); err != nil {
		return err
	}
	if err := importFiles(ctx, root, docs, folderEngine, &counts); err != nil {
		return err
	}
	if err := removeMissingFolders(ctx, root, folderEngine, &counts); err != nil {
		return err
	}
	if err := removeMissingDocuments(ctx, root, docs, &counts); err != nil {
		return err
	}

	log.Info().
		Int("found", counts.Found).
		Int("already_tracked", counts.AlreadyTracked).
		Int("imported_folders", counts.ImportedFolders).
		Int("removed_missing_folders", counts.RemovedMissingFolders).
		Int("removed_missing_documents", counts.RemovedMissingDocuments).
		Msg("startup reconciliation complete")
	return nil
}

// importFolders walks every directory under root (excluding the fixed
// operational set) and ensures its folder chain exists in the DB.
func importFolders(ctx context.Context, root string, folderEngine *folders.Engine, counts *ReconcileCounts) error {
	for _, scopeRoot := range rootScopes {
		base := filepath.Join(root, scopeRoot)
		if _, err := os.Stat(base); os.IsNotExist(err) {
			continue
		}
		err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil || !info.IsDir() || path == base {
				return nil
			}
			if isExcludedDir(path) {
				return filepath.SkipDir
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			scope, components, ok := ParseFolderPath(rel)
			if !ok || len(components) == 0 {
				return nil
			}
			if _, err := folderEngine.ResolveOrCreatePath(ctx, scope, components); err != nil {
				return err
			}
			counts.ImportedFolders++
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// importFiles walks every permitted-extension file under root and runs
// the duplicate-detection path; files with no matching document row are
// treated as newly discovered.
func importFiles(ctx context.Context, root string, docs *documents.Service, folderEngine *folders.Engine, counts *ReconcileCounts) error {
	for _, scopeRoot := range rootScopes {
		base := filepath.Join(root, scopeRoot)
		if _, err := os.Stat(base); os.IsNotExist(err) {
			continue
		}
		err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if isExcludedDir(filepath.Dir(path)) || parser.IsTemporaryFile(path) || !parser.IsSupportedFile(path) {
				return nil
			}
			counts.Found++

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			pc, ok := ParsePath(rel)
			if !ok {
				return nil
			}

			folderID, err := folderEngine.ResolvePath(ctx, pc.Scope, pc.FolderPath)
			if err != nil {
				return err
			}
			existing, err := docs.Repo().FindByFilenameAndContext(ctx, pc.Filename, pc.UserID, pc.Kind, folderID)
			if err != nil {
				return err
			}
			if existing != nil {
				counts.AlreadyTracked++
				return nil
			}

			_, err = docs.IngestDiscovered(ctx, documents.DiscoverInput{
				Path:           path,
				Filename:       pc.Filename,
				UserID:         pc.UserID,
				TeamID:         pc.TeamID,
				CollectionKind: pc.Kind,
				FolderPath:     pc.FolderPath,
			})
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// removeMissingFolders reconstructs each DB folder's on-disk path; if
// absent, the folder row is deleted (cascading to its documents).
func removeMissingFolders(ctx context.Context, root string, folderEngine *folders.Engine, counts *ReconcileCounts) error {
	scopes := []folders.Scope{{Kind: folders.ScopeGlobal}}
	// User-scoped folders are discovered by scanning Users/<u> directories
	// rather than enumerating user ids up front.
	usersDir := filepath.Join(root, "Users")
	if entries, err := os.ReadDir(usersDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				uid := e.Name()
				scopes = append(scopes, folders.Scope{Kind: folders.ScopeUser, UserID: &uid})
			}
		}
	}

	for _, scope := range scopes {
		rows, err := folderEngine.ListFolders(ctx, scope)
		if err != nil {
			return err
		}
		for _, f := range rows {
			components, err := folderEngine.FolderPath(ctx, scope, f.ID)
			if err != nil {
				return err
			}
			diskPath := filepath.Join(append([]string{root, scopeDir(scope)}, components...)...)
			if _, err := os.Stat(diskPath); os.IsNotExist(err) {
				if err := folderEngine.Delete(ctx, scope, f.ID); err != nil {
					return err
				}
				counts.RemovedMissingFolders++
			}
		}
	}
	return nil
}

// removeMissingDocuments walks every document in pages of 500 and deletes
// the metadata row plus vector points for any whose file path no longer
// exists on disk.
func removeMissingDocuments(ctx context.Context, root string, docs *documents.Service, counts *ReconcileCounts) error {
	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		page, err := docs.Repo().ListAllPaginated(ctx, pageSize, offset)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, d := range page {
			if d.FilePath == "" {
				continue
			}
			if _, err := os.Stat(d.FilePath); os.IsNotExist(err) {
				if err := docs.Delete(ctx, d.ID, d.UserID); err != nil {
					return err
				}
				counts.RemovedMissingDocuments++
			}
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

func scopeDir(scope folders.Scope) string {
	switch scope.Kind {
	case folders.ScopeUser:
		return filepath.Join("Users", *scope.UserID)
	case folders.ScopeTeam:
		return filepath.Join("Teams", *scope.TeamID, "documents")
	default:
		return "Global"
	}
}
