// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_SpacesSuccessiveCalls(t *testing.T) {
	l := newLimiter(50 * time.Millisecond)
	first := l.nextAllowed()
	second := l.nextAllowed()
	assert.True(t, second.Sub(first) >= 50*time.Millisecond)
}

func TestLimiter_ZeroIntervalNeverDelays(t *testing.T) {
	l := newLimiter(0)
	before := time.Now()
	allowed := l.nextAllowed()
	assert.True(t, allowed.Sub(before) < time.Millisecond)
}
