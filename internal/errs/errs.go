// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package errs defines the error-kind taxonomy shared across the platform:
// transient database errors, duplicate-detection short-circuits, validation
// failures, rate limiting, partial pipeline failures, non-retryable
// tool/LLM errors, and fatal startup errors. Components classify errors into
// one of these kinds so callers crossing the task-fabric boundary can tell
// retryable from terminal without inspecting driver-specific error types.
package errs

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy.
type Kind string

const (
	KindTransientDB    Kind = "transient_db"
	KindDuplicate      Kind = "duplicate_detected"
	KindValidation     Kind = "validation_error"
	KindRateLimit      Kind = "rate_limit"
	KindPartialFailure Kind = "partial_failure"
	KindNonRetryable   Kind = "non_retryable"
	KindFatal          Kind = "fatal"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// retryability without string-matching driver errors more than once.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to "" when err isn't a
// classified *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Duplicate short-circuits ingestion with the id of the pre-existing row.
type Duplicate struct {
	ExistingID string
}

func (d *Duplicate) Error() string {
	return fmt.Sprintf("duplicate detected, existing id = %s", d.ExistingID)
}

// AsDuplicate reports whether err is a *Duplicate and returns it.
func AsDuplicate(err error) (*Duplicate, bool) {
	var d *Duplicate
	ok := errors.As(err, &d)
	return d, ok
}

// Envelope is the result shape returned across the task-fabric boundary,
// per spec §7's propagation policy.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType Kind   `json:"error_type,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewEnvelope builds a success or failure Envelope from err, classifying it
// via KindOf when err is a tagged *Error.
func NewEnvelope(data any, err error, nowUnix int64) Envelope {
	if err == nil {
		return Envelope{Success: true, Data: data, Timestamp: nowUnix}
	}
	return Envelope{Success: false, Error: err.Error(), ErrorType: KindOf(err), Timestamp: nowUnix}
}
