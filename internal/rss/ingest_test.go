// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package rss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash_NormalizesWhitespaceAndCase(t *testing.T) {
	a := contentHash("Hello   World", "desc", "https://x/y")
	b := contentHash("hello world", "DESC", "https://x/y")
	assert.Equal(t, a, b)
}

func TestContentHash_DiffersOnLink(t *testing.T) {
	a := contentHash("title", "desc", "https://x/y")
	b := contentHash("title", "desc", "https://x/z")
	assert.NotEqual(t, a, b)
}

func TestFeedID_DeterministicPerURLAndUser(t *testing.T) {
	uid := "u1"
	first := FeedID("https://example.com/feed", &uid)
	second := FeedID("https://example.com/feed", &uid)
	assert.Equal(t, first, second)

	global := FeedID("https://example.com/feed", nil)
	assert.NotEqual(t, first, global)
}

func TestSafeArticleFilename_StripsPathCharacters(t *testing.T) {
	name := safeArticleFilename(`weird/title:with*chars?`, "fallback-id")
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, ":")
	assert.NotContains(t, name, "*")
}
