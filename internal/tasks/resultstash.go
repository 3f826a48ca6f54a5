// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// resultTTL is the lifetime of a stashed orchestrator result, per spec §4.7.
const resultTTL = time.Hour

// resultKeyPrefix mirrors the spec's orchestrator_result:<task_id> shape.
const resultKeyPrefix = "orchestrator_result:"

// ResultStash stores large task payloads out-of-band in Redis so the task
// result channel itself only ever carries a small marker. Readers consult
// the stash, not the task status record, for the payload.
type ResultStash struct {
	client *redis.Client
}

func NewResultStash(client *redis.Client) *ResultStash {
	return &ResultStash{client: client}
}

// Store saves payload under orchestrator_result:<taskID> with a 1-hour TTL.
func (s *ResultStash) Store(ctx context.Context, taskID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal stash payload: %w", err)
	}
	return s.client.SetEx(ctx, resultKeyPrefix+taskID, data, resultTTL).Err()
}

// Marker is the small value returned through the task result channel in
// place of the real payload, per spec §6.4/§4.7.
type Marker struct {
	Success       bool   `json:"success"`
	TaskID        string `json:"task_id"`
	StoredInRedis bool   `json:"stored_in_redis"`
}

// NewMarker builds the stand-in result for a task whose real payload was
// stashed via Store.
func NewMarker(taskID string) Marker {
	return Marker{Success: true, TaskID: taskID, StoredInRedis: true}
}

// Fetch retrieves and unmarshals a previously stashed payload into out. It
// returns redis.Nil (wrapped) if the entry has expired or was never stored.
func (s *ResultStash) Fetch(ctx context.Context, taskID string, out any) error {
	data, err := s.client.Get(ctx, resultKeyPrefix+taskID).Result()
	if err != nil {
		return fmt.Errorf("fetch stash: %w", err)
	}
	return json.Unmarshal([]byte(data), out)
}
