// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/northbound/triangle/internal/embeddings"
	"github.com/northbound/triangle/internal/events"
	"github.com/northbound/triangle/internal/folders"
	"github.com/northbound/triangle/internal/parser"
	"github.com/northbound/triangle/internal/vectorindex"
)

// UploadInput is the payload for Service.Upload (spec §4.5).
type UploadInput struct {
	Bytes         []byte
	Filename      string
	DeclaredType  *DocType
	UserID        *string
	TeamID        *string
	CollectionKind CollectionKind
	FolderPath    []string // folder name components; resolved/created as needed
}

// UploadResult is what the upload contract returns to the caller.
type UploadResult struct {
	Document        *Document
	DuplicateOfID   *string // set when find_by_hash short-circuited the upload
}

// Service implements the upload pipeline of spec §4.5, wiring the
// repository, folder engine, vector gateway, parser dispatch, and embedder
// the way the teacher's drone/watcher/manager.go processFile wires parsing,
// chunking, and ingestion together.
type Service struct {
	repo     *Repository
	folders  *folders.Engine
	vectors  *vectorindex.Gateway
	embedder embeddings.Embedder
	chunker  *parser.Chunker
	events   *events.Broadcaster
	entities EntityExtractor

	uploadsRoot string
	log         zerolog.Logger
}

// SetEntityExtractor wires an optional knowledge-graph backend; metadata
// updates and deletions are no-ops on the entity side until one is set.
func (s *Service) SetEntityExtractor(e EntityExtractor) {
	s.entities = e
}

// NewService constructs a Service. uploadsRoot is the on-disk root under
// which Users/<u>/, Global/, and Teams/<t>/documents/ live (spec §6.1).
func NewService(repo *Repository, folderEngine *folders.Engine, vectors *vectorindex.Gateway, embedder embeddings.Embedder, broadcaster *events.Broadcaster, uploadsRoot string, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		folders:     folderEngine,
		vectors:     vectors,
		embedder:    embedder,
		chunker:     parser.NewChunker(),
		events:      broadcaster,
		uploadsRoot: uploadsRoot,
		log:         log,
	}
}

// Upload runs the full contract from spec §4.5 steps 1-9.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	hash := sha256Hex(in.Bytes)

	// Step 2: short-circuit on content-hash dedup (invariant I3).
	existing, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	}
	if existing != nil {
		return &UploadResult{Document: existing, DuplicateOfID: &existing.ID}, nil
	}

	docID := uuid.NewString()

	scope := scopeFor(in.CollectionKind, in.UserID, in.TeamID)
	folderID, err := s.folders.ResolveOrCreatePath(ctx, scope, in.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("resolve folder path: %w", err)
	}

	destPath, err := s.writeFile(in, folderID)
	if err != nil {
		return nil, fmt.Errorf("write uploaded file: %w", err)
	}

	docType := DocUnknown
	if in.DeclaredType != nil {
		docType = *in.DeclaredType
	} else {
		docType = parser.ClassifyExtension(in.Filename)
	}

	doc := Document{
		ID:               docID,
		Filename:         in.Filename,
		FilePath:         destPath,
		Title:            in.Filename,
		DocType:          docType,
		FileSize:         int64(len(in.Bytes)),
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

	// Fast path: org files parse synchronously and skip vectorization.
	if docType == DocOrg {
		text, _, err := parser.ParseFile(destPath)
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

	// Folder inheritance: patch category/tags from the target folder.
	if err := s.applyFolderInheritance(ctx, created, folderID, scope); err != nil {
		s.log.Warn().Err(err).Str("document_id", created.ID).Msg("folder inheritance patch failed")
	}

	// Normal path: hand off to async processing (ProcessDocument), return immediately.
	go func() {
		bg := context.Background()
		if err := s.ProcessDocument(bg, created.ID, destPath); err != nil {
			s.log.Error().Err(err).Str("document_id", created.ID).Msg("async document processing failed")
			_ = s.repo.UpdateStatus(bg, created.ID, StatusFailed, in.UserID)
			s.events.DocumentStatusUpdate(created.ID, string(StatusFailed), derefOrEmpty(folderID), derefOrEmpty(in.UserID), created.Filename)
		}
	}()

	return &UploadResult{Document: created}, nil
}

func (s *Service) writeFile(in UploadInput, folderID *string) (string, error) {
	relDir := scopeRelativeDir(in.CollectionKind, in.UserID, in.TeamID, in.FolderPath)
	dir := filepath.Join(s.uploadsRoot, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, in.Filename)
	if err := os.WriteFile(dest, in.Bytes, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

// applyFolderInheritance reads the target folder and, when it has
// inherit_tags set and declares a category/tags, patches the freshly
// created document with those values (spec §4.5 step 8) before the
// upload returns. UpdateMetadata also patches the vector payload so the
// inherited category/tags are searchable without a re-embed.
func (s *Service) applyFolderInheritance(ctx context.Context, doc *Document, folderID *string, scope folders.Scope) error {
	if folderID == nil {
		return nil
	}
	folder, err := s.folders.GetFolder(ctx, scope, *folderID)
	if err != nil {
		return fmt.Errorf("load folder for inheritance: %w", err)
	}
	if folder == nil || !folder.InheritTags {
		return nil
	}
	if folder.InheritedCategory == nil && len(folder.InheritedTags) == 0 {
		return nil
	}
	in := MetadataUpdateInput{
		DocumentID: doc.ID,
		UserID:     doc.UserID,
		Category:   folder.InheritedCategory,
	}
	if len(folder.InheritedTags) > 0 {
		in.Tags = folder.InheritedTags
	}
	if err := s.UpdateMetadata(ctx, in); err != nil {
		return fmt.Errorf("patch inherited category/tags: %w", err)
	}
	doc.Category = folder.InheritedCategory
	if len(folder.InheritedTags) > 0 {
		doc.Tags = folder.InheritedTags
	}
	return nil
}

func scopeFor(kind CollectionKind, userID, teamID *string) folders.Scope {
	switch kind {
	case CollectionTeam:
		return folders.Scope{Kind: folders.ScopeTeam, TeamID: teamID}
	case CollectionGlobal:
		return folders.Scope{Kind: folders.ScopeGlobal}
	default:
		return folders.Scope{Kind: folders.ScopeUser, UserID: userID}
	}
}

func scopeRelativeDir(kind CollectionKind, userID, teamID *string, folderPath []string) string {
	var base string
	switch kind {
	case CollectionTeam:
		base = filepath.Join("Teams", derefOrEmpty(teamID), "documents")
	case CollectionGlobal:
		base = "Global"
	default:
		base = filepath.Join("Users", derefOrEmpty(userID))
	}
	return filepath.Join(append([]string{base}, folderPath...)...)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
