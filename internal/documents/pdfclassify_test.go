// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextQualityScore_CleanProseScoresHigh(t *testing.T) {
	score := textQualityScore("The quick brown fox jumps over the lazy dog near the riverbank.")
	assert.Greater(t, score, 0.6)
}

func TestTextQualityScore_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, textQualityScore(""))
}

func TestTextQualityScore_GarbledTextScoresLow(t *testing.T) {
	garbled := textQualityScore("@#$%^&*()_+{}|:<>?~`[]\\;',./!@#$%^&*()_+~~~~~~~~")
	clean := textQualityScore("This is a perfectly readable sentence about nothing in particular.")
	assert.Less(t, garbled, clean)
}

func TestHasOCRSignature(t *testing.T) {
	assert.True(t, hasOCRSignature("Tesseract 5.0", ""))
	assert.True(t, hasOCRSignature("", "ABBYY FineReader"))
	assert.False(t, hasOCRSignature("Microsoft Word", "Word"))
}

func TestExtractProducerCreator(t *testing.T) {
	raw := []byte(`<< /Producer (Adobe PDF Library) /Creator (Microsoft Word) >>`)
	producer, creator := extractProducerCreator(raw)
	assert.Equal(t, "Adobe PDF Library", producer)
	assert.Equal(t, "Microsoft Word", creator)
}
