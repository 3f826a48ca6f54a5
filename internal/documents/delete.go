// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"os"
)

// Delete removes a document in the order spec §4.5 requires: vector points
// first (best-effort), then the metadata row, then the file, then
// knowledge-graph entities. Each step logs and continues past failure of a
// later step; the metadata row is the authoritative "gone" signal, so once
// it is removed the remaining steps are cleanup, not correctness.
func (s *Service) Delete(ctx context.Context, docID string, userID *string) error {
	doc, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	if s.vectors != nil {
		collection := s.vectors.GlobalCollection()
		if doc.UserID != nil {
			if c, err := s.vectors.UserCollection(ctx, *doc.UserID); err == nil {
				collection = c
			} else {
				s.log.Warn().Err(err).Str("document_id", docID).Msg("failed to resolve collection for chunk deletion")
			}
		}
		if err := s.vectors.DeleteDocumentChunks(ctx, collection, docID); err != nil {
			s.log.Warn().Err(err).Str("document_id", docID).Msg("failed to delete vector points")
		}
	}

	if err := s.repo.Delete(ctx, docID, userID); err != nil {
		return err
	}

	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("document_id", docID).Msg("failed to delete file")
		}
	}

	if s.entities != nil {
		if err := s.entities.RemoveForDomains(ctx, docID, doc.Tags); err != nil {
			s.log.Warn().Err(err).Str("document_id", docID).Msg("failed to remove knowledge-graph entities")
		}
	}

	s.events.FileDeleted(doc.FilePath)
	return nil
}
