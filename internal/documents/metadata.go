// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"fmt"

	"github.com/northbound/triangle/internal/vectorindex"
)

// EntityExtractor is the knowledge-graph hook: given a document and its
// domain tags, it (re-)extracts domain-specific entities, or removes
// entities tied to a domain that no longer applies. Modeled on
// embeddings.Embedder's single-method pluggable-backend shape so the
// knowledge-graph backend can be swapped the same way an embedding
// provider can.
type EntityExtractor interface {
	ExtractForDomains(ctx context.Context, documentID string, domains []string) error
	RemoveForDomains(ctx context.Context, documentID string, domains []string) error
}

// MetadataUpdateInput is the patch set for UpdateMetadata.
type MetadataUpdateInput struct {
	DocumentID string
	UserID     *string
	Title      *string
	Author     *string
	Category   *string
	Tags       []string
}

// UpdateMetadata patches a document's row, then detects domain changes
// (tags gained/lost) and reconciles the knowledge graph without touching
// chunks or embeddings, per spec §4.5.
func (s *Service) UpdateMetadata(ctx context.Context, in MetadataUpdateInput) error {
	existing, err := s.repo.FindByID(ctx, in.DocumentID)
	if err != nil {
		return fmt.Errorf("load document for metadata update: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("document %s not found", in.DocumentID)
	}
	previousTags := existing.Tags

	if err := s.repo.UpdateMetadata(ctx, in.DocumentID, in.UserID, in.Title, in.Author, in.Category, in.Tags); err != nil {
		return fmt.Errorf("update metadata row: %w", err)
	}

	if s.vectors != nil && (in.Title != nil || in.Author != nil || in.Category != nil || in.Tags != nil) {
		collection := s.vectors.GlobalCollection()
		if in.UserID != nil {
			collection, err = s.vectors.UserCollection(ctx, *in.UserID)
			if err != nil {
				return fmt.Errorf("resolve collection for metadata patch: %w", err)
			}
		}
		patch := vectorindex.MetadataPatch{Title: in.Title, Author: in.Author, Category: in.Category, Tags: in.Tags}
		if err := s.vectors.PatchMetadata(ctx, collection, in.DocumentID, patch); err != nil {
			s.log.Warn().Err(err).Str("document_id", in.DocumentID).Msg("failed to patch vector payload metadata")
		}
	}

	if in.Tags == nil || s.entities == nil {
		return nil
	}
	added, removed := diffDomains(previousTags, in.Tags)
	if len(added) > 0 {
		if err := s.entities.ExtractForDomains(ctx, in.DocumentID, added); err != nil {
			s.log.Warn().Err(err).Str("document_id", in.DocumentID).Msg("domain entity extraction failed")
		}
	}
	if len(removed) > 0 {
		if err := s.entities.RemoveForDomains(ctx, in.DocumentID, removed); err != nil {
			s.log.Warn().Err(err).Str("document_id", in.DocumentID).Msg("domain entity removal failed")
		}
	}
	return nil
}

// diffDomains returns tags present in next but not prev (added) and tags
// present in prev but not next (removed).
func diffDomains(prev, next []string) (added, removed []string) {
	prevSet := make(map[string]bool, len(prev))
	for _, t := range prev {
		prevSet[t] = true
	}
	nextSet := make(map[string]bool, len(next))
	for _, t := range next {
		nextSet[t] = true
	}
	for _, t := range next {
		if !prevSet[t] {
			added = append(added, t)
		}
	}
	for _, t := range prev {
		if !nextSet[t] {
			removed = append(removed, t)
		}
	}
	return added, removed
}
