// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StuckFeedCleaner sweeps for feeds that have sat is_polling=true past the
// 30-minute threshold (a poller that crashed or was killed without
// reaching its deferred release) and resets them, per spec §4.9. The
// ticker idiom is grounded on internal/drone/watcher/debouncer.go's
// time.Timer-per-tick shape, repurposed from per-path debounce to a
// fixed-interval sweep.
type StuckFeedCleaner struct {
	repo *Repository
	log  zerolog.Logger
}

func NewStuckFeedCleaner(repo *Repository, log zerolog.Logger) *StuckFeedCleaner {
	return &StuckFeedCleaner{repo: repo, log: log}
}

// Run ticks every sweepInterval until ctx is cancelled, resetting any feed
// stuck polling for longer than stuckPollThreshold.
func (c *StuckFeedCleaner) Run(ctx context.Context, sweepInterval time.Duration) {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.repo.ResetStuckPolls(ctx)
			if err != nil {
				c.log.Warn().Err(err).Msg("stuck feed sweep failed")
				continue
			}
			if n > 0 {
				c.log.Info().Int64("count", n).Msg("reset stuck feed polls")
			}
		}
	}
}
