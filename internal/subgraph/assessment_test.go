// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeutralAssessment_DefaultsToInsufficient(t *testing.T) {
	v := neutralAssessment()
	assert.False(t, v.Sufficient)
	assert.Equal(t, 0.5, v.Confidence)
	assert.False(t, v.HasRelevantInfo)
}

func TestJoinNumbered_NumbersEachItem(t *testing.T) {
	out := joinNumbered([]string{"first", "second"})
	assert.Contains(t, out, "1. first")
	assert.Contains(t, out, "2. second")
}
