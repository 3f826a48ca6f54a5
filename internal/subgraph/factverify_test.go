// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainCredibility_MatchesSpecTable(t *testing.T) {
	assert.Equal(t, 0.9, domainCredibility("https://arxiv.org/abs/1234"))
	assert.Equal(t, 0.9, domainCredibility("https://pubmed.ncbi.nlm.nih.gov/123"))
	assert.Equal(t, 0.9, domainCredibility("https://www.example.ac.uk/paper"))
	assert.Equal(t, 0.9, domainCredibility("https://cs.stanford.edu/paper"))
	assert.Equal(t, 0.7, domainCredibility("https://en.wikipedia.org/wiki/Go"))
	assert.Equal(t, 0.8, domainCredibility("https://www.whitehouse.gov/briefing"))
	assert.Equal(t, 0.8, domainCredibility("https://www.eff.org/issues"))
	assert.Equal(t, 0.5, domainCredibility("https://some-random-blog.com/post"))
}
