// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/northbound/triangle/internal/documents"
	"github.com/northbound/triangle/internal/embeddings"
	"github.com/northbound/triangle/internal/vectorindex"
)

// RetrievalMode selects the score threshold used by the intelligent
// document retrieval subgraph, per spec §4.10.
type RetrievalMode string

const (
	RetrievalFast          RetrievalMode = "fast"
	RetrievalComprehensive RetrievalMode = "comprehensive"
	RetrievalTargeted      RetrievalMode = "targeted"
)

func (m RetrievalMode) threshold() float32 {
	switch m {
	case RetrievalComprehensive:
		return 0.4
	case RetrievalTargeted:
		return 0.5
	default:
		return 0.3
	}
}

// fullContentSizeThreshold is the document byte size under which the
// retrieval subgraph prefers full content over its matched top-N chunks.
const fullContentSizeThreshold = 20_000

// recencyBoostWindow and maxRecencyBoost implement spec §4.10's "≤30-day
// linear decay up to +0.10" recency boost.
const (
	recencyBoostWindow = 30 * 24 * time.Hour
	maxRecencyBoost    = 0.10
)

// RetrievalDeps bundles the collaborators the intelligent retrieval
// subgraph needs; passed once at graph build time rather than threaded
// through State, since these are process-lifetime singletons, not
// per-invocation values.
type RetrievalDeps struct {
	Vectors  *vectorindex.Gateway
	Embedder embeddings.Embedder
	DocRepo  *documents.Repository
	LLM      *LLM
}

// BuildRetrievalGraph compiles the "intelligent document retrieval"
// subgraph from spec §4.10: vector search with recency boost, mode-scoped
// score-threshold filtering, per-document full-vs-chunked strategy
// selection, a formatted context string, and an LLM sufficiency check.
// The sufficiency check only sets the sufficient flag; it does not
// re-fetch chunked documents as full content.
// Input keys: query (string), mode (RetrievalMode or string, optional,
// defaults to fast), user_id (*string, optional), limit (int, optional).
// Output keys: matches ([]vectorindex.Match), context (string),
// sufficient (bool).
func BuildRetrievalGraph(deps RetrievalDeps) (*CompiledGraph, error) {
	g := NewGraph("intelligent_document_retrieval")

	g.AddNode("search", func(ctx context.Context, state State) (Patch, error) {
		query := StateString(state, "query")
		mode, _ := state["mode"].(RetrievalMode)
		if mode == "" {
			mode = RetrievalMode(StateString(state, "mode"))
		}
		if mode == "" {
			mode = RetrievalFast
		}
		limit := 10
		if v, ok := state["limit"].(int); ok && v > 0 {
			limit = v
		}
		var userID *string
		if v, ok := state["user_id"].(*string); ok {
			userID = v
		}

		vec, err := deps.Embedder.EmbedText(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("retrieval: embed query: %w", err)
		}

		matches, err := deps.Vectors.SearchSimilar(ctx, vec, vectorindex.SearchOptions{
			Limit:           limit,
			Threshold:       mode.threshold(),
			UserID:          userID,
			IncludeAdjacent: true,
		})
		if err != nil {
			return nil, fmt.Errorf("retrieval: search: %w", err)
		}

		applyRecencyBoost(ctx, deps.DocRepo, matches)
		sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

		return Patch{"matches": matches}, nil
	})

	g.AddNode("strategy", func(ctx context.Context, state State) (Patch, error) {
		matches, _ := state["matches"].([]vectorindex.Match)
		byDoc := groupByDocument(matches)

		var sections []string
		for docID, docMatches := range byDoc {
			doc, err := deps.DocRepo.FindByID(ctx, docID)
			if err != nil || doc == nil {
				sections = append(sections, chunkSection(docID, docMatches))
				continue
			}
			if doc.FileSize > 0 && doc.FileSize < fullContentSizeThreshold {
				content, readErr := os.ReadFile(doc.FilePath)
				if readErr == nil {
					sections = append(sections, fmt.Sprintf("## %s (full document)\n\n%s", doc.Title, string(content)))
					continue
				}
			}
			sections = append(sections, chunkSection(doc.Title, docMatches))
		}

		return Patch{"context": strings.Join(sections, "\n\n---\n\n")}, nil
	})

	g.AddNode("sufficiency_check", func(ctx context.Context, state State) (Patch, error) {
		query := StateString(state, "query")
		context_ := StateString(state, "context")
		if deps.LLM == nil || context_ == "" {
			return Patch{"sufficient": context_ != ""}, nil
		}

		var verdict struct {
			Sufficient bool `json:"sufficient"`
		}
		prompt := fmt.Sprintf("Query: %s\n\nRetrieved context:\n%s\n\nIs this context sufficient to answer the query? Reply with JSON {\"sufficient\": bool}.", query, truncateForPrompt(context_, 4000))
		if err := deps.LLM.CompleteJSON(ctx, prompt, CompleteOptions{MaxTokens: 50}, &verdict); err != nil {
			return Patch{"sufficient": true}, nil
		}
		return Patch{"sufficient": verdict.Sufficient}, nil
	})

	g.SetEntry("search")
	g.AddEdge("search", "strategy")
	g.AddEdge("strategy", "sufficiency_check")
	g.AddEdge("sufficiency_check", End)

	return g.Compile()
}

func applyRecencyBoost(ctx context.Context, repo *documents.Repository, matches []vectorindex.Match) {
	now := time.Now()
	for i := range matches {
		doc, err := repo.FindByID(ctx, matches[i].DocumentID)
		if err != nil || doc == nil || doc.PublishedAt == nil {
			continue
		}
		age := now.Sub(*doc.PublishedAt)
		if age < 0 || age > recencyBoostWindow {
			continue
		}
		fraction := 1.0 - (float64(age) / float64(recencyBoostWindow))
		matches[i].Score += float32(fraction * maxRecencyBoost)
	}
}

func groupByDocument(matches []vectorindex.Match) map[string][]vectorindex.Match {
	out := make(map[string][]vectorindex.Match)
	for _, m := range matches {
		out[m.DocumentID] = append(out[m.DocumentID], m)
	}
	return out
}

func chunkSection(title string, matches []vectorindex.Match) string {
	var parts []string
	for _, m := range matches {
		parts = append(parts, m.Content)
	}
	return fmt.Sprintf("## %s (chunks)\n\n%s", title, strings.Join(parts, "\n\n"))
}

func truncateForPrompt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
