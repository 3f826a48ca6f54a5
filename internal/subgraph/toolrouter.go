// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/northbound/triangle/internal/embeddings"
	"github.com/northbound/triangle/internal/vectorindex"
)

// Tool is one entry in the tools collection: a name, a natural-language
// description vectorized on deploy, and an opaque handler key the caller
// resolves back to an actual invokable function.
type Tool struct {
	Name        string
	Description string
	HandlerKey  string
}

// ToolRouter selects candidate tools by similarity to a task description,
// per spec §4.10's "Tool routing" note that tools live in their own
// vectorized collection. The in-memory name->Tool cache, filled by
// RegisterTool and never reloaded from the vector store, is grounded on the
// teacher's internal/rules.Store active-rule cache — there a RWMutex
// guards a slice refreshed from SQLite; here it guards a map refreshed
// from Qdrant payloads instead of a relational active-rules table.
type ToolRouter struct {
	vectors  *vectorindex.Gateway
	embedder embeddings.Embedder

	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRouter constructs a ToolRouter over the shared vector gateway and
// embedder used for document search.
func NewToolRouter(vectors *vectorindex.Gateway, embedder embeddings.Embedder) *ToolRouter {
	return &ToolRouter{vectors: vectors, embedder: embedder, tools: make(map[string]Tool)}
}

// RegisterTool vectorizes a tool's description into the tools collection
// and adds it to the in-memory cache. SelectTools only returns tools found
// in that cache, so a tool is selectable once it has been registered in
// this process.
func (r *ToolRouter) RegisterTool(ctx context.Context, tool Tool) error {
	vec, err := r.embedder.EmbedText(ctx, tool.Description)
	if err != nil {
		return fmt.Errorf("toolrouter: embed tool %s: %w", tool.Name, err)
	}
	if err := r.vectors.UpsertToolPoint(ctx, tool.Name, tool.Description, vec, map[string]string{"handler_key": tool.HandlerKey}); err != nil {
		return fmt.Errorf("toolrouter: upsert tool %s: %w", tool.Name, err)
	}

	r.mu.Lock()
	r.tools[tool.Name] = tool
	r.mu.Unlock()
	return nil
}

// SelectTools returns up to limit tools whose description is most similar
// to taskDescription, used by the tool-selection node every agent subgraph
// that needs external tools calls before deciding which to invoke.
func (r *ToolRouter) SelectTools(ctx context.Context, taskDescription string, limit int) ([]Tool, error) {
	if limit <= 0 {
		limit = 5
	}
	vec, err := r.embedder.EmbedText(ctx, taskDescription)
	if err != nil {
		return nil, fmt.Errorf("toolrouter: embed task description: %w", err)
	}

	matches, err := r.vectors.SearchTools(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("toolrouter: search tools: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(matches))
	for _, m := range matches {
		if t, ok := r.tools[m.DocumentID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// toolSelectionTimeout bounds how long a node waits on tool similarity
// search before falling back to no tools, keeping a slow vector store from
// stalling an entire conversation turn.
const toolSelectionTimeout = 5 * time.Second
