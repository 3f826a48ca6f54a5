// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"context"
	"fmt"
	"sync"

	qdrant "github.com/qdrant/go-client/qdrant"
)

// SearchSimilar implements search_similar from spec §4.3: when a user id is
// supplied, the user and global collections are queried in parallel, hits
// are merged by point id preferring the higher score on collision, and each
// surviving hit is annotated with source_collection. include_adjacent then
// looks up chunk_index±1 of the same document and appends them with a
// score penalty.
func (g *Gateway) SearchSimilar(ctx context.Context, vector []float32, opts SearchOptions) ([]Match, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	filter := buildSearchFilter(opts)

	type collHits struct {
		collection string
		hits       []Match
		err        error
	}

	var targets []string
	if opts.UserID != nil {
		userColl, err := g.UserCollection(ctx, *opts.UserID)
		if err != nil {
			return nil, err
		}
		targets = append(targets, userColl)
	}
	targets = append(targets, g.globalCollection)

	results := make([]collHits, len(targets))
	var wg sync.WaitGroup
	for i, coll := range targets {
		wg.Add(1)
		go func(i int, coll string) {
			defer wg.Done()
			hits, err := g.searchOne(ctx, coll, vector, limit, opts.Threshold, filter)
			results[i] = collHits{collection: coll, hits: hits, err: err}
		}(i, coll)
	}
	wg.Wait()

	merged := make(map[string]Match)
	for _, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("search %s: %w", r.collection, r.err)
		}
		for _, hit := range r.hits {
			existing, ok := merged[hit.PointID]
			if !ok || hit.Score > existing.Score {
				merged[hit.PointID] = hit
			}
		}
	}

	out := make([]Match, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}

	if opts.IncludeAdjacent {
		adjacent, err := g.fetchAdjacent(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("fetch adjacent chunks: %w", err)
		}
		out = append(out, adjacent...)
	}

	return out, nil
}

func buildSearchFilter(opts SearchOptions) *qdrant.Filter {
	var must []*qdrant.Condition
	if opts.FilterCategory != nil {
		must = append(must, matchKeyword("document_category", *opts.FilterCategory))
	}
	for _, tag := range opts.FilterTags {
		must = append(must, matchKeyword("document_tags", tag))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func (g *Gateway) searchOne(ctx context.Context, collection string, vector []float32, limit int, threshold float32, filter *qdrant.Filter) ([]Match, error) {
	req := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		Filter:         filter,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &qdrant.WithVectorsSelector{SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: false}},
	}
	if threshold > 0 {
		req.ScoreThreshold = &threshold
	}

	resp, err := g.points.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	hits := make([]Match, 0, len(resp.Result))
	for _, sp := range resp.Result {
		hits = append(hits, matchFromScoredPoint(sp, collection))
	}
	return hits, nil
}

func matchFromScoredPoint(sp *qdrant.ScoredPoint, collection string) Match {
	var pointID string
	if sp.Id != nil {
		if u := sp.Id.GetUuid(); u != "" {
			pointID = u
		} else {
			pointID = fmt.Sprintf("%d", sp.Id.GetNum())
		}
	}
	payload := sp.Payload
	return Match{
		PointID:          pointID,
		DocumentID:       payloadString(payload, "document_id"),
		ChunkID:          payloadString(payload, "chunk_id"),
		Content:          payloadString(payload, "content"),
		ChunkIndex:       payloadInt(payload, "chunk_index"),
		Score:            sp.Score,
		Metadata:         rawStringPayload(payload),
		SourceCollection: collection,
	}
}

func rawStringPayload(payload map[string]*qdrant.Value) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		out[k] = v.GetStringValue()
	}
	return out
}

// fetchAdjacent looks up chunk_index±1 of the same document for every hit
// and appends them with a 0.8x score penalty, skipping chunks already
// present in the result set.
func (g *Gateway) fetchAdjacent(ctx context.Context, hits []Match) ([]Match, error) {
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.DocumentID+"#"+fmt.Sprint(h.ChunkIndex)] = true
	}

	var adjacent []Match
	for _, h := range hits {
		for _, delta := range []int{-1, 1} {
			idx := h.ChunkIndex + delta
			if idx < 0 {
				continue
			}
			key := h.DocumentID + "#" + fmt.Sprint(idx)
			if seen[key] {
				continue
			}
			seen[key] = true

			found, err := g.scrollByDocumentAndIndex(ctx, h.SourceCollection, h.DocumentID, idx)
			if err != nil {
				return nil, err
			}
			if found == nil {
				continue
			}
			found.Score = h.Score * adjacentScorePenalty
			found.IsAdjacent = true
			adjacent = append(adjacent, *found)
		}
	}
	return adjacent, nil
}

func (g *Gateway) scrollByDocumentAndIndex(ctx context.Context, collection, docID string, chunkIndex int) (*Match, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			matchKeyword("document_id", docID),
			matchKeyword("chunk_index", fmt.Sprint(chunkIndex)),
		},
	}
	limit := uint32(1)
	resp, err := g.points.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, nil
	}
	pt := resp.Result[0]
	var pointID string
	if pt.Id != nil {
		if u := pt.Id.GetUuid(); u != "" {
			pointID = u
		} else {
			pointID = fmt.Sprintf("%d", pt.Id.GetNum())
		}
	}
	return &Match{
		PointID:          pointID,
		DocumentID:       docID,
		ChunkID:          payloadString(pt.Payload, "chunk_id"),
		Content:          payloadString(pt.Payload, "content"),
		ChunkIndex:       chunkIndex,
		Metadata:         rawStringPayload(pt.Payload),
		SourceCollection: collection,
	}, nil
}
