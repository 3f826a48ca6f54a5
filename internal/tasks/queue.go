// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tasks

import (
	"context"
	"encoding/json"
	"time"
)

// Queue names. Each corresponds to a distinct Redis list, replacing the
// teacher's single "jobs:default" list with one list per task kind so
// per-name rate limits and worker pools can be sized independently.
const (
	QueueOrchestratorQuery = "orchestrator_query"
	QueueRSSPoll           = "rss_poll"
	QueueArticleProcess    = "article_process"
	QueueRetentionPurge    = "retention_purge"
)

// Job is a unit of work placed on a named queue. TaskID links the job back
// to the status record created at Submit time.
type Job struct {
	TaskID    string          `json:"taskId"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Queue defines the interface for named job queues.
type Queue interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available, then returns it. Returns an
	// error if the context is cancelled or if the operation fails.
	Dequeue(ctx context.Context) (Job, error)
}
