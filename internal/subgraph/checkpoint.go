// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/northbound/triangle/internal/dbmanager"
)

// CheckpointStore persists one State snapshot (with its step number) per
// (graph_name, thread_id) in the
// subgraph_checkpoints table, grounded on internal/dbmanager.Manager's
// FetchOne/Exec idiom used throughout internal/documents/repository.go.
// Checkpoints carry no RLS context of their own; callers scope thread ids
// so cross-user collision cannot happen (thread ids are derived from a
// user id and a conversation id upstream).
type CheckpointStore struct {
	db *dbmanager.Manager
}

// NewCheckpointStore constructs a CheckpointStore over db.
func NewCheckpointStore(db *dbmanager.Manager) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Save writes a snapshot of state for (graphName, threadID) at step,
// overwriting any existing row for that key.
func (c *CheckpointStore) Save(ctx context.Context, graphName, threadID string, step int, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal state: %w", err)
	}
	return c.db.Exec(ctx, `
		INSERT INTO subgraph_checkpoints (graph_name, thread_id, step, state, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (graph_name, thread_id)
		DO UPDATE SET step = EXCLUDED.step, state = EXCLUDED.state, updated_at = now()
		WHERE subgraph_checkpoints.step <= EXCLUDED.step
	`, []any{graphName, threadID, step, data}, nil)
}

// Latest loads the most recent snapshot for (graphName, threadID), or
// (nil, 0, nil) if none exists yet — the caller should then invoke the
// graph from a fresh initial state.
func (c *CheckpointStore) Latest(ctx context.Context, graphName, threadID string) (State, int, error) {
	row, err := c.db.FetchOne(ctx, `
		SELECT step, state FROM subgraph_checkpoints
		WHERE graph_name = $1 AND thread_id = $2
	`, []any{graphName, threadID}, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("checkpoint: fetch latest: %w", err)
	}
	if row == nil {
		return nil, 0, nil
	}

	var state State
	raw, _ := row["state"].([]byte)
	if len(raw) == 0 {
		if s, ok := row["state"].(string); ok {
			raw = []byte(s)
		}
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, 0, fmt.Errorf("checkpoint: unmarshal state: %w", err)
	}

	step, _ := row["step"].(int64)
	return state, int(step), nil
}

// InvokeResumable runs graph starting from the last checkpoint for
// threadID (merged under initial, so caller-supplied keys still seed a
// fresh run), persisting a new snapshot after the graph completes.
func (c *CheckpointStore) InvokeResumable(ctx context.Context, graph *CompiledGraph, threadID string, initial State) (State, error) {
	saved, step, err := c.Latest(ctx, graph.Name(), threadID)
	if err != nil {
		return nil, err
	}
	start := initial
	if saved != nil {
		start = saved.Merge(Patch(initial))
	}

	result, err := graph.Invoke(ctx, threadID, start)
	if err != nil {
		return result, err
	}
	if saveErr := c.Save(ctx, graph.Name(), threadID, step+1, result); saveErr != nil {
		return result, saveErr
	}
	return result, nil
}
