// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffDomains_DetectsAddedAndRemoved(t *testing.T) {
	added, removed := diffDomains([]string{"finance", "legal"}, []string{"finance", "entertainment"})
	assert.ElementsMatch(t, []string{"entertainment"}, added)
	assert.ElementsMatch(t, []string{"legal"}, removed)
}

func TestDiffDomains_NoChange(t *testing.T) {
	added, removed := diffDomains([]string{"finance"}, []string{"finance"})
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestDiffDomains_EmptyPrevious(t *testing.T) {
	added, removed := diffDomains(nil, []string{"finance"})
	assert.ElementsMatch(t, []string{"finance"}, added)
	assert.Empty(t, removed)
}
