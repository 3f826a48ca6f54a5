// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedText generates an embedding vector for the given text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts (more efficient).
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimension of the embedding vectors.
	Dimension() int
}

// RateLimitError signals a 429 response from an embedding provider, per
// spec §4.3's "rate-limit-aware retry policy extracts the server's
// recommended wait (if any)". RetryAfter is zero when the provider didn't
// advertise one, in which case the caller falls back to capped backoff.
type RateLimitError struct {
	Status     int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("embedding provider rate limited (status %d, retry after %s)", e.Status, e.RetryAfter)
}

// parseRetryAfter reads a Retry-After header value as either delay-seconds
// or an HTTP-date, returning 0 when absent or unparseable.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// NewEmbedder creates an embedder based on the provided type and configuration.
// Supported types: "openai", "ollama", "mock" (for testing)
func NewEmbedder(embedderType string, config map[string]string, log zerolog.Logger) (Embedder, error) {
	switch embedderType {
	case "openai":
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}
		model := config["model"]
		if model == "" {
			model = "text-embedding-3-small" // default
		}
		return NewOpenAIEmbedder(apiKey, model, log)
	case "ollama":
		baseURL := config["base_url"]
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := config["model"]
		if model == "" {
			model = "nomic-embed-text" // default
		}
		return NewOllamaEmbedder(baseURL, model, log)
	case "mock":
		dim := 384 // default mock dimension
		if dimStr := config["dimension"]; dimStr != "" {
			fmt.Sscanf(dimStr, "%d", &dim)
		}
		return NewMockEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedder type: %s", embedderType)
	}
}

