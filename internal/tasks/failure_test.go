// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tasks

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureFailure_TruncatesLongMessages(t *testing.T) {
	err := errors.New(strings.Repeat("x", 2000))
	meta := CaptureFailure(err, false)
	assert.Len(t, meta.Message, maxFailureMessageLen)
	assert.Equal(t, "error", meta.ErrorType)
}

func TestCaptureFailure_TagsSoftTimeLimit(t *testing.T) {
	meta := CaptureFailure(errors.New("deadline exceeded"), true)
	assert.Equal(t, softTimeLimitErrorType, meta.ErrorType)
}

func TestTaskState_Terminal(t *testing.T) {
	assert.True(t, StateSuccess.terminal())
	assert.True(t, StateFailure.terminal())
	assert.True(t, StateCancelled.terminal())
	assert.False(t, StatePending.terminal())
	assert.False(t, StateStarted.terminal())
}
