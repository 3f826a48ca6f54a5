// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package dbmanager

import "time"

// Config carries every pooling and retry knob from spec §4.1.
type Config struct {
	DSN string

	MinPoolSize                   int32
	MaxPoolSize                   int32
	CommandTimeout                time.Duration
	MaxQueriesPerConnection       int32
	MaxInactiveConnectionLifetime time.Duration
	ConnectionMaxAge              time.Duration

	RetryAttempts  int
	RetryDelayBase time.Duration

	HealthCheckInterval time.Duration

	EnableQueryLogging         bool
	EnablePerformanceMonitoring bool

	Mode ExecutionMode
}

// WithDefaults fills in the conservative defaults the teacher's
// newPgPool helper used, so a caller only needs to set DSN and Mode.
func (c Config) WithDefaults() Config {
	if c.MinPoolSize <= 0 {
		c.MinPoolSize = 1
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 10
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 30 * time.Second
	}
	if c.MaxQueriesPerConnection <= 0 {
		c.MaxQueriesPerConnection = 50000
	}
	if c.MaxInactiveConnectionLifetime <= 0 {
		c.MaxInactiveConnectionLifetime = 5 * time.Minute
	}
	if c.ConnectionMaxAge <= 0 {
		c.ConnectionMaxAge = time.Hour
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelayBase <= 0 {
		c.RetryDelayBase = 200 * time.Millisecond
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	return c
}
