// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/northbound/triangle/internal/dbmanager"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TRIANGLE_TEST_DSN")
	if dsn == "" {
		t.Skip("TRIANGLE_TEST_DSN not set, skipping database-backed test")
	}
	m, err := dbmanager.New(context.Background(), dbmanager.Config{DSN: dsn, Mode: dbmanager.ModePooled})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return NewRepository(m)
}

// TestClaimPoll_MutualExclusion exercises invariant I6 / spec §8 property 6
// and Scenario 3: of N concurrent claim attempts for the same feed, exactly
// one succeeds.
func TestClaimPoll_MutualExclusion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	feed, err := repo.CreateFeed(ctx, Feed{URL: "https://example.com/concurrent-feed", CheckInterval: time.Minute})
	require.NoError(t, err)

	const attempts = 100
	var claimedCount int64
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.ClaimPoll(ctx, feed.ID, feed.UserID)
			require.NoError(t, err)
			if ok {
				atomic.AddInt64(&claimedCount, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), claimedCount)
	require.NoError(t, repo.ReleasePoll(ctx, feed.ID, feed.UserID, true))
}
