// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/northbound/triangle/internal/dbmanager"
)

func newTestCheckpointStore(t *testing.T) *CheckpointStore {
	t.Helper()
	dsn := os.Getenv("TRIANGLE_TEST_DSN")
	if dsn == "" {
		t.Skip("TRIANGLE_TEST_DSN not set, skipping database-backed test")
	}
	m, err := dbmanager.New(context.Background(), dbmanager.Config{DSN: dsn, Mode: dbmanager.ModePooled})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return NewCheckpointStore(m)
}

func TestCheckpointStore_SaveThenLatestRoundTrips(t *testing.T) {
	store := newTestCheckpointStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "test_graph", "thread-1", 1, State{"answer": "42"}))

	state, step, err := store.Latest(ctx, "test_graph", "thread-1")
	require.NoError(t, err)
	require.Equal(t, 1, step)
	require.Equal(t, "42", state["answer"])
}

func TestCheckpointStore_LatestReturnsNilForUnknownThread(t *testing.T) {
	store := newTestCheckpointStore(t)
	state, step, err := store.Latest(context.Background(), "test_graph", "no-such-thread")
	require.NoError(t, err)
	require.Nil(t, state)
	require.Equal(t, 0, step)
}
