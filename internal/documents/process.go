// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/northbound/triangle/internal/parser"
	"github.com/northbound/triangle/internal/vectorindex"
)

// skipVectorization holds the declared types the async pipeline delegates
// to the processor without ever chunking/embedding, per spec §4.5 ("each
// non-org, non-image, non-audio file that yields chunks").
func skipVectorization(t DocType) bool {
	switch t {
	case DocOrg, DocImage, DocAudio:
		return true
	default:
		return false
	}
}

// ProcessDocument runs the async half of the upload pipeline: classify (for
// PDFs), extract text, chunk, embed, upsert into the vector gateway, and
// advance processing_status through embedding -> completed, emitting a
// status event at each transition.
func (s *Service) ProcessDocument(ctx context.Context, docID, path string) error {
	record, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document metadata: %w", err)
	}
	if record == nil {
		return fmt.Errorf("document %s not found for processing", docID)
	}

	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		classification, err := ClassifyPDF(path)
		if err != nil {
			return fmt.Errorf("classify pdf: %w", err)
		}
		s.log.Info().Str("document_id", docID).Str("classification", string(classification.Outcome)).Msg("pdf classified")
	}

	if skipVectorization(record.DocType) || !parser.IsSupportedFile(path) {
		return s.finalizeWithoutVectorization(ctx, docID, record.UserID)
	}

	text, _, err := parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse file: %w", err)
	}

	chunks, err := s.chunker.ChunkText(text)
	if err != nil {
		return fmt.Errorf("chunk text: %w", err)
	}
	if len(chunks) == 0 {
		return s.finalizeWithoutVectorization(ctx, docID, record.UserID)
	}

	if err := s.repo.UpdateStatus(ctx, docID, StatusEmbedding, record.UserID); err != nil {
		return err
	}
	s.events.DocumentStatusUpdate(docID, string(StatusEmbedding), derefOrEmpty(record.FolderID), derefOrEmpty(record.UserID), record.Filename)

	if err := s.embedAndStoreChunks(ctx, record, chunks); err != nil {
		return fmt.Errorf("embed and store chunks: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, docID, StatusCompleted, record.UserID); err != nil {
		return err
	}
	s.events.DocumentStatusUpdate(docID, string(StatusCompleted), derefOrEmpty(record.FolderID), derefOrEmpty(record.UserID), record.Filename)
	return nil
}

func (s *Service) finalizeWithoutVectorization(ctx context.Context, docID string, userID *string) error {
	if err := s.repo.UpdateStatus(ctx, docID, StatusCompleted, userID); err != nil {
		return err
	}
	s.events.DocumentStatusUpdate(docID, string(StatusCompleted), "", derefOrEmpty(userID), "")
	return nil
}

// embedAndStoreChunks embeds every chunk and upserts each point into the
// user's collection (falling back to global when no user id is set),
// enriching the payload with category/tags/title/author/filename per spec
// §4.5/§4.3.
func (s *Service) embedAndStoreChunks(ctx context.Context, doc *Document, chunks []string) error {
	vectors, err := embedWithRateLimitRetry(ctx, s.embedder, chunks)
	if err != nil {
		return err
	}

	collection := s.vectors.GlobalCollection()
	if doc.UserID != nil {
		collection, err = s.vectors.UserCollection(ctx, *doc.UserID)
		if err != nil {
			return err
		}
	}

	var quality float64
	if doc.Quality != nil {
		quality = doc.Quality.Overall
	}

	for i, chunk := range chunks {
		point := vectorindex.Point{
			DocumentID:       doc.ID,
			ChunkID:          fmt.Sprintf("%s-%d", doc.ID, i),
			Content:          chunk,
			ChunkIndex:       i,
			QualityScore:     quality,
			Method:           "recursive-split",
			UserID:           derefOrEmpty(doc.UserID),
			DocumentCategory: doc.Category,
			DocumentTags:     doc.Tags,
			DocumentTitle:    &doc.Title,
			DocumentAuthor:   doc.Author,
			DocumentFilename: &doc.Filename,
			Vector:           vectors[i],
		}
		if err := s.vectors.Upsert(ctx, collection, point); err != nil {
			return fmt.Errorf("upsert chunk %d: %w", i, err)
		}
	}
	return nil
}
