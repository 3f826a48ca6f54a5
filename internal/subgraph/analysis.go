// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/northbound/triangle/internal/documents"
)

// maxAnalysisDocuments and maxAnalysisQueries are spec §4.10's "≤2
// documents" and "≤4 queries" caps on full document analysis.
const (
	maxAnalysisDocuments = 2
	maxAnalysisQueries   = 4
)

// docQueryResult is one cell of the docs × queries prompt matrix.
type docQueryResult struct {
	DocumentTitle string
	Query         string
	Answer        string
	Err           error
}

// BuildAnalysisGraph compiles the "full document analysis" subgraph from
// spec §4.10: given a small set of documents and queries, retrieve full
// content for each document, run every (document, query) prompt in
// parallel, then synthesize the results into one answer.
// Input keys: document_ids ([]string, ≤2), queries ([]string, ≤4).
// Output keys: results ([]docQueryResult), synthesis (string).
func BuildAnalysisGraph(docRepo *documents.Repository, llm *LLM) (*CompiledGraph, error) {
	g := NewGraph("full_document_analysis")

	g.AddNode("retrieve_full_content", func(ctx context.Context, state State) (Patch, error) {
		docIDs, _ := state["document_ids"].([]string)
		if len(docIDs) > maxAnalysisDocuments {
			docIDs = docIDs[:maxAnalysisDocuments]
		}

		type docContent struct {
			title   string
			content string
		}
		var docs []docContent
		for _, id := range docIDs {
			doc, err := docRepo.FindByID(ctx, id)
			if err != nil || doc == nil {
				continue
			}
			raw, err := os.ReadFile(doc.FilePath)
			if err != nil {
				continue
			}
			docs = append(docs, docContent{title: doc.Title, content: string(raw)})
		}

		patch := Patch{"doc_count": len(docs)}
		for i, d := range docs {
			patch[fmt.Sprintf("doc_title_%d", i)] = d.title
			patch[fmt.Sprintf("doc_content_%d", i)] = d.content
		}
		return patch, nil
	})

	g.AddNode("prompt_matrix", func(ctx context.Context, state State) (Patch, error) {
		queries, _ := state["queries"].([]string)
		if len(queries) > maxAnalysisQueries {
			queries = queries[:maxAnalysisQueries]
		}
		docCount, _ := state["doc_count"].(int)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var results []docQueryResult

		for d := 0; d < docCount; d++ {
			title := StateString(state, fmt.Sprintf("doc_title_%d", d))
			content := StateString(state, fmt.Sprintf("doc_content_%d", d))
			for _, query := range queries {
				wg.Add(1)
				go func(title, content, query string) {
					defer wg.Done()
					prompt := fmt.Sprintf("Document: %s\n\n%s\n\nQuestion: %s", title, truncateForPrompt(content, 12000), query)
					answer, _, err := llm.Complete(ctx, prompt, CompleteOptions{
						SystemPrompt: "Answer the question using only the document provided.",
						MaxTokens:    600,
					})
					mu.Lock()
					results = append(results, docQueryResult{DocumentTitle: title, Query: query, Answer: answer, Err: err})
					mu.Unlock()
				}(title, content, query)
			}
		}
		wg.Wait()

		return Patch{"results": results}, nil
	})

	g.AddNode("synthesize", func(ctx context.Context, state State) (Patch, error) {
		results, _ := state["results"].([]docQueryResult)
		var b strings.Builder
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			fmt.Fprintf(&b, "### %s — %s\n%s\n\n", r.DocumentTitle, r.Query, r.Answer)
		}

		if llm == nil || b.Len() == 0 {
			return Patch{"synthesis": b.String()}, nil
		}

		prompt := fmt.Sprintf("Synthesize these per-document findings into one coherent answer:\n\n%s", b.String())
		synthesis, _, err := llm.Complete(ctx, prompt, CompleteOptions{MaxTokens: 800})
		if err != nil {
			return Patch{"synthesis": b.String()}, nil
		}
		return Patch{"synthesis": synthesis}, nil
	})

	g.SetEntry("retrieve_full_content")
	g.AddEdge("retrieve_full_content", "prompt_matrix")
	g.AddEdge("prompt_matrix", "synthesize")
	g.AddEdge("synthesize", End)

	return g.Compile()
}
