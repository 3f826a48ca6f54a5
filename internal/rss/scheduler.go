// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs the poll state machine of spec §4.9: eligibility select,
// CAS-claim (invariant I6), fetch+ingest, guaranteed release. Its
// dequeue-and-process loop is grounded on internal/worker/worker.go's
// goroutine-pool shape, generalized from a job queue to a periodic
// eligibility poll.
type Scheduler struct {
	repo    *Repository
	fetcher *Fetcher
	ingest  *Ingestor
	log     zerolog.Logger
}

func NewScheduler(repo *Repository, fetcher *Fetcher, ingest *Ingestor, log zerolog.Logger) *Scheduler {
	return &Scheduler{repo: repo, fetcher: fetcher, ingest: ingest, log: log}
}

// RunOnce selects up to 10 eligible feeds for scope (nil = global) and
// polls each claimed one. Feeds that lose the CAS race (another poller
// already claimed them) are skipped, not retried.
func (s *Scheduler) RunOnce(ctx context.Context, userID *string) error {
	feeds, err := s.repo.EligibleFeeds(ctx, userID)
	if err != nil {
		return fmt.Errorf("select eligible feeds: %w", err)
	}
	for _, feed := range feeds {
		s.pollIfClaimed(ctx, feed)
	}
	return nil
}

// pollIfClaimed attempts the CAS claim and, on success, runs PollFeed,
// guaranteeing release on every exit path (panic, error, or success) per
// invariant I6.
func (s *Scheduler) pollIfClaimed(ctx context.Context, feed *Feed) {
	claimed, err := s.repo.ClaimPoll(ctx, feed.ID, feed.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("feed_id", feed.ID).Msg("failed to claim feed poll")
		return
	}
	if !claimed {
		return
	}
	defer func() {
		if err := s.repo.ReleasePoll(ctx, feed.ID, feed.UserID, true); err != nil {
			s.log.Warn().Err(err).Str("feed_id", feed.ID).Msg("failed to release feed poll lock")
		}
	}()

	if err := s.PollFeed(ctx, feed); err != nil {
		s.log.Warn().Err(err).Str("feed_id", feed.ID).Str("url", feed.URL).Msg("feed poll failed")
	}
}

// PollFeed fetches, dedups, and saves new articles for feed. Full-content
// extraction and vectorization for newly saved articles is best-effort and
// does not fail the poll as a whole.
func (s *Scheduler) PollFeed(ctx context.Context, feed *Feed) error {
	raw, err := s.fetcher.FetchFeed(ctx, feed.URL)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	saved, err := s.ingest.SaveNewArticles(ctx, feed, raw)
	if err != nil {
		return fmt.Errorf("save new articles: %w", err)
	}

	for _, article := range saved {
		if err := s.ingest.ExtractAndMaterialize(ctx, feed, article); err != nil {
			s.log.Warn().Err(err).Str("feed_id", feed.ID).Str("link", article.Link).
				Msg("failed to extract and materialize article")
		}
	}
	return nil
}

// Start runs RunOnce on a ticker until ctx is cancelled, implementing the
// scheduled-poll half of the task fabric's rate-limited "rss_poll" queue
// (capped at 1/min per spec §4.7) when run as its own background loop
// rather than dispatched through internal/tasks.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, userID *string) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx, userID); err != nil {
				s.log.Warn().Err(err).Msg("rss scheduler run failed")
			}
		}
	}
}
