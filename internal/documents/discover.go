// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/northbound/triangle/internal/folders"
	"github.com/northbound/triangle/internal/parser"
)

// DiscoverInput describes a file already present on disk under the
// watched tree, as opposed to freshly uploaded bytes.
type DiscoverInput struct {
	Path         string
	Filename     string
	DeclaredType *DocType
	UserID       *string
	TeamID       *string
	CollectionKind CollectionKind
	FolderPath   []string
}

// IngestDiscovered registers a file the watcher found on disk, mirroring
// spec §4.5's upload contract but reusing the bytes already at in.Path
// instead of writing new ones (spec §4.6's "create/modified" handling).
func (s *Service) IngestDiscovered(ctx context.Context, in DiscoverInput) (*UploadResult, error) {
	bytes, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read discovered file: %w", err)
	}
	hash := sha256Hex(bytes)

	if existing, err := s.repo.FindByHash(ctx, hash); err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	} else if existing != nil {
		return &UploadResult{Document: existing, DuplicateOfID: &existing.ID}, nil
	}

	scope := scopeFor(in.CollectionKind, in.UserID, in.TeamID)
	folderID, err := s.folders.ResolveOrCreatePath(ctx, scope, in.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("resolve folder path: %w", err)
	}

	docType := DocUnknown
	if in.DeclaredType != nil {
		docType = *in.DeclaredType
	} else {
		docType = parser.ClassifyExtension(in.Filename)
	}

	doc := Document{
		ID:               uuid.NewString(),
		Filename:         in.Filename,
		FilePath:         in.Path,
		Title:            in.Filename,
		DocType:          docType,
		FileSize:         int64(len(bytes)),
		FileHash:         hash,
		ProcessingStatus: StatusProcessing,
		UserID:           in.UserID,
		TeamID:           in.TeamID,
		CollectionKind:   in.CollectionKind,
	}

	created, err := s.repo.CreateWithFolder(ctx, doc, folderID)
	if err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if docType == DocOrg {
		text, _, err := parser.ParseFile(in.Path)
		if err != nil {
			return nil, fmt.Errorf("parse org file: %w", err)
		}
		s.log.Debug().Str("document_id", created.ID).Int("chars", len(text)).Msg("org file parsed synchronously")
		if err := s.repo.UpdateStatus(ctx, created.ID, StatusCompleted, in.UserID); err != nil {
			return nil, fmt.Errorf("mark org file completed: %w", err)
		}
		created.ProcessingStatus = StatusCompleted
		s.events.DocumentStatusUpdate(created.ID, string(StatusCompleted), derefOrEmpty(folderID), derefOrEmpty(in.UserID), created.Filename)
		return &UploadResult{Document: created}, nil
	}

	go func() {
		bg := context.Background()
		if err := s.ProcessDocument(bg, created.ID, in.Path); err != nil {
			s.log.Error().Err(err).Str("document_id", created.ID).Msg("async discovered-file processing failed")
			_ = s.repo.UpdateStatus(bg, created.ID, StatusFailed, in.UserID)
			s.events.DocumentStatusUpdate(created.ID, string(StatusFailed), derefOrEmpty(folderID), derefOrEmpty(in.UserID), created.Filename)
		}
	}()

	return &UploadResult{Document: created}, nil
}

// Reprocess handles a modified-file event for a document that already
// exists: delete its old vector points, then run the normal async
// pipeline again so stale chunks beyond the new chunk count don't linger.
func (s *Service) Reprocess(ctx context.Context, docID, path string) error {
	doc, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document for reprocess: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document %s not found for reprocess", docID)
	}

	if s.vectors != nil && !skipVectorization(doc.DocType) {
		collection := s.vectors.GlobalCollection()
		if doc.UserID != nil {
			if c, err := s.vectors.UserCollection(ctx, *doc.UserID); err == nil {
				collection = c
			}
		}
		if err := s.vectors.DeleteDocumentChunks(ctx, collection, docID); err != nil {
			s.log.Warn().Err(err).Str("document_id", docID).Msg("failed to clear stale vector points before reprocess")
		}
	}

	if err := s.repo.UpdateStatus(ctx, docID, StatusProcessing, doc.UserID); err != nil {
		return err
	}
	return s.ProcessDocument(ctx, docID, path)
}

// FolderScope exposes folders.Scope construction for callers outside this
// package (the watcher) that need to resolve/create paths the same way
// the upload pipeline does.
func FolderScope(kind CollectionKind, userID, teamID *string) folders.Scope {
	return scopeFor(kind, userID, teamID)
}

// Repo exposes the repository for read-only lookups from the watcher
// (duplicate detection by filename+context, reconciliation scans).
func (s *Service) Repo() *Repository { return s.repo }

// Folders exposes the folder engine for the watcher's own folder-event
// handling (create/delete chain resolution).
func (s *Service) Folders() *folders.Engine { return s.folders }
