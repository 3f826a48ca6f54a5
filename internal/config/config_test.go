// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDBDSN(t *testing.T) {
	os.Unsetenv("DB_DSN")
	_, err := Load("nonexistent.env")
	assert.Error(t, err)
}

func TestLoad_AppliesDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/test")
	t.Setenv("TASK_FABRIC_WORKER_COUNT", "9")

	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/test", cfg.DB.DSN)
	assert.Equal(t, "pooled", cfg.DB.Mode)
	assert.Equal(t, 9, cfg.TaskFabric.WorkerCount)
	assert.Equal(t, "global_documents", cfg.Vector.GlobalCollection)
}
