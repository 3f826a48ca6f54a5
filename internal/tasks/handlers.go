// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/northbound/triangle/internal/rss"
)

// OrchestratorQuery is the payload of an orchestrator_query task.
type OrchestratorQuery struct {
	UserID         string         `json:"userId"`
	ConversationID string         `json:"conversationId"`
	SessionID      string         `json:"sessionId"`
	Persona        string         `json:"persona,omitempty"`
	AgentType      string         `json:"agentType,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// OrchestratorRunner is the narrow slice of internal/agentstream.Client the
// orchestrator_query handler depends on: accumulate a full streamed
// response and return it. Declared here rather than imported so this
// package never depends on agentstream's gRPC wiring directly.
type OrchestratorRunner interface {
	Run(ctx context.Context, q OrchestratorQuery) (string, error)
}

// OrchestratorQueryHandler builds a HandlerFunc implementing the canonical
// large-result task of spec §4.7: the agent's full response is stashed
// under orchestrator_result:<task_id> and only a small marker flows back
// through the task's own result field.
func OrchestratorQueryHandler(runner OrchestratorRunner, stash *ResultStash) HandlerFunc {
	return func(ctx context.Context, job Job) (any, error) {
		var q OrchestratorQuery
		if err := json.Unmarshal(job.Payload, &q); err != nil {
			return nil, fmt.Errorf("unmarshal orchestrator query: %w", err)
		}

		response, err := runner.Run(ctx, q)
		if err != nil {
			return nil, err
		}

		if err := stash.Store(ctx, job.TaskID, map[string]string{"response": response}); err != nil {
			return nil, fmt.Errorf("stash orchestrator result: %w", err)
		}
		return NewMarker(job.TaskID), nil
	}
}

// RSSPollQuery is the payload of an rss_poll task: run one eligibility
// sweep for the given scope (nil UserID means the global feed set),
// mirroring the argument internal/rss.Scheduler.RunOnce already takes.
type RSSPollQuery struct {
	UserID *string `json:"userId,omitempty"`
}

// RSSPoller is the narrow slice of internal/rss.Scheduler an rss_poll
// handler depends on, declared locally so tests can supply a fake.
type RSSPoller interface {
	RunOnce(ctx context.Context, userID *string) error
}

// RSSPollHandler builds a HandlerFunc that runs one scheduler sweep per
// job, the queue-dispatched counterpart to Scheduler.Start's own ticker
// loop — useful when poll sweeps should scale across triangle-worker
// instances instead of running on a single fixed interval per process.
func RSSPollHandler(scheduler RSSPoller) HandlerFunc {
	return func(ctx context.Context, job Job) (any, error) {
		var q RSSPollQuery
		if len(job.Payload) > 0 {
			if err := json.Unmarshal(job.Payload, &q); err != nil {
				return nil, fmt.Errorf("unmarshal rss poll query: %w", err)
			}
		}
		if err := scheduler.RunOnce(ctx, q.UserID); err != nil {
			return nil, err
		}
		return NewMarker(job.TaskID), nil
	}
}

// ArticleProcessQuery is the payload of an article_process task: extract
// and materialize one already-saved article, out of band from the poll
// sweep that saved it. The feed and article are carried whole rather than
// by id, since the scheduler already holds both in memory right after
// Scheduler.RunOnce saves the new rows.
type ArticleProcessQuery struct {
	Feed    rss.Feed    `json:"feed"`
	Article rss.Article `json:"article"`
}

// ArticleExtractor is the narrow slice of internal/rss.Ingestor an
// article_process handler depends on.
type ArticleExtractor interface {
	ExtractAndMaterialize(ctx context.Context, feed *rss.Feed, article *rss.Article) error
}

// ArticleProcessHandler builds a HandlerFunc that extracts and
// materializes one article per job, the queue-dispatched counterpart to
// Scheduler.PollFeed's own inline per-article loop.
func ArticleProcessHandler(ingest ArticleExtractor) HandlerFunc {
	return func(ctx context.Context, job Job) (any, error) {
		var q ArticleProcessQuery
		if err := json.Unmarshal(job.Payload, &q); err != nil {
			return nil, fmt.Errorf("unmarshal article process query: %w", err)
		}
		if err := ingest.ExtractAndMaterialize(ctx, &q.Feed, &q.Article); err != nil {
			return nil, err
		}
		return NewMarker(job.TaskID), nil
	}
}

// RetentionPurger is the narrow slice of internal/rss.Retention a
// retention_purge handler depends on.
type RetentionPurger interface {
	Purge(ctx context.Context) error
}

// RetentionPurgeHandler builds a HandlerFunc running one retention sweep
// per job, the queue-dispatched counterpart to the server's own ticker
// loop around Retention.Purge.
func RetentionPurgeHandler(retention RetentionPurger) HandlerFunc {
	return func(ctx context.Context, job Job) (any, error) {
		if err := retention.Purge(ctx); err != nil {
			return nil, err
		}
		return NewMarker(job.TaskID), nil
	}
}
