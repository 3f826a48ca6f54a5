// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package vectorindex is the gateway onto the Qdrant-backed embedding
// store: deterministic point ids, per-user/global collection routing, and
// the merged similarity search the subgraph runtime and document service
// both call through.
package vectorindex

// Point is a single chunk's vector plus the payload fields spec §4.3
// mandates.
type Point struct {
	ChunkID      string
	DocumentID   string
	Content      string
	ChunkIndex   int
	QualityScore float64
	Method       string
	Metadata     map[string]string
	ContentHash  string
	UserID       string

	DocumentCategory *string
	DocumentTags     []string
	DocumentTitle    *string
	DocumentAuthor   *string
	DocumentFilename *string

	Vector []float32
}

// Match is a scored search hit, annotated with which collection it came
// from and, for adjacent-chunk expansion, whether it was injected rather
// than directly matched.
type Match struct {
	PointID      string
	DocumentID   string
	ChunkID      string
	Content      string
	ChunkIndex   int
	Score        float32
	Metadata     map[string]string
	SourceCollection string
	IsAdjacent   bool
}

// SearchOptions mirrors search_similar's parameter list from spec §4.3.
type SearchOptions struct {
	Limit           int
	Threshold       float32
	UserID          *string
	IncludeAdjacent bool
	FilterCategory  *string
	FilterTags      []string
}

// MetadataPatch is the set of document-derived fields that can change
// without re-embedding; PatchMetadata pushes them to every point carrying
// the document id.
type MetadataPatch struct {
	Title    *string
	Author   *string
	Category *string
	Tags     []string
}

const adjacentScorePenalty = 0.8
