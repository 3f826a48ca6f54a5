// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package dbmanager

import (
	"context"
	"strings"
	"time"
)

// retryableSignatures are lower-cased substrings that mark an error as
// transient and worth retrying, per spec §4.1.
var retryableSignatures = []string{
	"connection was closed",
	"connection does not exist",
	"another operation is in progress",
	"server closed the connection unexpectedly",
	"timeout",
	"connection refused",
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range retryableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// withRetry runs op up to cfg.RetryAttempts times, sleeping
// cfg.RetryDelayBase * 2^(attempt-1) between attempts, stopping early on a
// non-retryable error or context cancellation. Grounded on
// intelligencedev-manifold/internal/orchestrator/kafka.go's
// attempt-bounded-backoff-with-context-sleep idiom.
func withRetry(ctx context.Context, cfg Config, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.RetryAttempts || ctx.Err() != nil {
			break
		}
		backoff := exponentialDelay(cfg.RetryDelayBase, attempt)
		sleepCtx, cancel := context.WithTimeout(ctx, backoff)
		<-sleepCtx.Done()
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// exponentialDelay returns base doubled once per attempt after the first
// (base, 2*base, 4*base, ...), so the growth is exponential rather than
// linear.
func exponentialDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
