// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package dbmanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("connection was closed"), true},
		{errors.New("Connection Does Not Exist"), true},
		{errors.New("another operation is in progress"), true},
		{errors.New("server closed the connection unexpectedly"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("connection refused"), true},
		{errors.New("syntax error near SELECT"), false},
		{nil, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isRetryable(c.err))
	}
}

func TestWithRetry_StopsOnNonRetryable(t *testing.T) {
	cfg := Config{RetryAttempts: 5, RetryDelayBase: time.Millisecond}.WithDefaults()
	cfg.RetryAttempts = 5
	cfg.RetryDelayBase = time.Millisecond

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustsRetryableAttempts(t *testing.T) {
	cfg := Config{RetryAttempts: 3, RetryDelayBase: time.Millisecond}.WithDefaults()
	cfg.RetryAttempts = 3
	cfg.RetryDelayBase = time.Millisecond

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("timeout")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	cfg := Config{RetryAttempts: 3, RetryDelayBase: time.Millisecond}.WithDefaults()
	cfg.RetryAttempts = 3
	cfg.RetryDelayBase = time.Millisecond

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
