// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManuscriptEdit_JSONRoundTrips(t *testing.T) {
	edit := ManuscriptEdit{Op: EditReplace, ChapterStart: 2, ChapterEnd: 3, Text: "new text", Rationale: "pacing"}
	data, err := json.Marshal(edit)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op":"replace"`)
}

func TestFictionContextGraph_ExtractsChapterExcerpt(t *testing.T) {
	graph, err := BuildFictionContextGraph()
	require.NoError(t, err)

	manuscript := "CHAPTER ONE TEXT.CHAPTER TWO TEXT.CHAPTER THREE TEXT."
	out, err := graph.Invoke(context.Background(), "t1", State{
		"manuscript":         manuscript,
		"outline":            "three act structure",
		"chapter_start":      1,
		"chapter_end":        1,
		"chapter_boundaries": []int{0, 17, 34},
	})
	require.NoError(t, err)

	mc, ok := out["context"].(ManuscriptContext)
	require.True(t, ok)
	assert.Equal(t, [2]int{1, 1}, mc.ChapterRange)
	assert.Contains(t, mc.Excerpt, "CHAPTER TWO")
}

func TestFictionResolutionGraph_PassesThroughWhenValid(t *testing.T) {
	graph, err := BuildFictionResolutionGraph(nil)
	require.NoError(t, err)

	edit := ManuscriptEdit{Op: EditInsert, Text: "unchanged"}
	out, err := graph.Invoke(context.Background(), "t1", State{
		"context": ManuscriptContext{},
		"edit":    edit,
		"valid":   true,
	})
	require.NoError(t, err)
	assert.Equal(t, edit, out["edit"])
}
