// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeContent("  Hello   World \n"))
}

func TestContentHash_DeterministicAndCaseInsensitive(t *testing.T) {
	a := ContentHash("Hello World")
	b := ContentHash("hello world")
	c := ContentHash("hello   world")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

// TestPointID_Idempotent is invariant I4: re-embedding a chunk with
// unchanged text must produce the same point id.
func TestPointID_Idempotent(t *testing.T) {
	hash := ContentHash("the quick brown fox")
	id1 := PointID(hash)
	id2 := PointID(hash)
	assert.Equal(t, id1, id2)

	other := PointID(ContentHash("a different chunk"))
	assert.NotEqual(t, id1, other)
}

func TestBuildPayload_IncludesRequiredKeys(t *testing.T) {
	title := "Annual Report"
	p := Point{
		ChunkID:      "chunk-1",
		DocumentID:   "doc-1",
		Content:      "some text",
		ChunkIndex:   2,
		QualityScore: 0.91,
		Method:       "recursive-split",
		ContentHash:  "abc",
		UserID:       "user-1",
		DocumentTitle: &title,
	}
	payload := buildPayload(p)

	for _, key := range []string{"chunk_id", "document_id", "content", "chunk_index", "quality_score", "method", "content_hash", "user_id", "document_title"} {
		_, ok := payload[key]
		assert.Truef(t, ok, "expected payload to contain %q", key)
	}
	assert.Equal(t, "Annual Report", payloadString(payload, "document_title"))
}

func TestSanitizeCollectionComponent(t *testing.T) {
	assert.Equal(t, "user_123_abc", sanitizeCollectionComponent("user-123.abc"))
}
