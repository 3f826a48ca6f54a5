// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/northbound/triangle/internal/documents"
)

// Retention implements the purge task of spec §4.9: delete RSS articles
// (and derived news-article rows, via the schema's FK cascade) older than
// a configurable window, and remove the files of any documents that had
// been materialized from them.
type Retention struct {
	repo   *Repository
	docs   *documents.Service
	window time.Duration
	log    zerolog.Logger
}

// NewRetention constructs a Retention purger; window defaults to 14 days
// (spec §4.9) when zero.
func NewRetention(repo *Repository, docs *documents.Service, window time.Duration, log zerolog.Logger) *Retention {
	if window <= 0 {
		window = defaultRetention
	}
	return &Retention{repo: repo, docs: docs, window: window, log: log}
}

// Purge deletes every rss_articles row older than the retention window and
// best-effort deletes the on-disk file and metadata row of any document
// that had been materialized from a purged article.
func (r *Retention) Purge(ctx context.Context) error {
	cutoff := time.Now().Add(-r.window)
	docIDs, err := r.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, docID := range docIDs {
		if err := r.docs.Delete(ctx, docID, nil); err != nil {
			r.log.Warn().Err(err).Str("document_id", docID).Msg("failed to delete document for purged rss article")
		}
	}
	return nil
}
