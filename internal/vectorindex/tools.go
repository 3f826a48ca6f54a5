// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import "context"

// UpsertToolPoint vectorizes one tool description into the shared tools
// collection, keyed by name so ContentHash/PointID are derived from the
// name+description pair and re-registering the same tool upserts in place.
// Exercises the tools collection spec §4.3 sets aside for the subgraph
// runtime's tool-selection node.
func (g *Gateway) UpsertToolPoint(ctx context.Context, name, description string, vector []float32, metadata map[string]string) error {
	return g.Upsert(ctx, g.toolsCollection, Point{
		DocumentID:  name,
		ChunkID:     name,
		Content:     description,
		ContentHash: ContentHash(name + "|" + description),
		Vector:      vector,
		Metadata:    metadata,
	})
}

// SearchTools returns the limit most similar registered tools to vector.
// Matches carry the tool name in DocumentID (set by UpsertToolPoint) so
// callers can look the full Tool back up from their own cache.
func (g *Gateway) SearchTools(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	return g.searchOne(ctx, g.toolsCollection, vector, limit, 0, nil)
}
