// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/northbound/triangle/internal/embeddings"
)

const (
	embedMaxAttempts    = 5
	embedRateLimitFloor = 5 * time.Second
	embedBackoffBase    = 2 * time.Second
)

// embedWithRateLimitRetry requests embeddings for texts, retrying on
// rate-limit responses per spec §4.3: it prefers the server's advertised
// Retry-After wait (surfaced as embeddings.RateLimitError) and otherwise
// falls back to capped exponential backoff, with a floor of 5 seconds
// either way.
func embedWithRateLimitRetry(ctx context.Context, embedder embeddings.Embedder, texts []string) ([][]float32, error) {
	trimmed := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			trimmed = append(trimmed, t)
		}
	}
	if len(trimmed) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt < embedMaxAttempts; attempt++ {
		vectors, err := embedder.EmbedBatch(ctx, trimmed)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		var rlErr *embeddings.RateLimitError
		isRateLimit := errors.As(err, &rlErr)
		if !isRateLimit && !isRateLimitError(err) {
			return nil, err
		}

		wait := embedRateLimitFloor
		switch {
		case rlErr != nil && rlErr.RetryAfter > wait:
			wait = rlErr.RetryAfter
		case rlErr == nil || rlErr.RetryAfter <= 0:
			if backoff := embedBackoffBase * time.Duration(1<<attempt); backoff > wait {
				wait = backoff
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
