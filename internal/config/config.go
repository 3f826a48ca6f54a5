// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package config loads the typed configuration tree the rest of the
// platform is wired from, generalizing the teacher's flag-based
// cmd/hive-server/main.go startup into a viper-backed Config struct so
// every component gets its settings from one place instead of scattered
// flag.String calls.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DBConfig configures internal/dbmanager.
type DBConfig struct {
	DSN              string
	Mode             string // "pooled" or "one_shot", see dbmanager.ExecutionMode
	MaxConns         int32
	HealthCheckEvery time.Duration
}

// VectorConfig configures internal/vectorindex.
type VectorConfig struct {
	Addr             string
	GlobalCollection string
	ToolsCollection  string
	Dimension        int
}

// TaskFabricConfig configures internal/tasks.
type TaskFabricConfig struct {
	RedisAddr     string
	RedisDB       int
	RedisPassword string
	WorkerCount   int
	ResultTTL     time.Duration
}

// RSSConfig configures internal/rss.
type RSSConfig struct {
	PollInterval      time.Duration
	StuckSweepEvery   time.Duration
	RetentionWindow   time.Duration
	StuckPollTimeout  time.Duration
}

// WatcherConfig configures internal/watcher.
type WatcherConfig struct {
	WatchRoots      []string
	DebounceWindow  time.Duration
}

// AgentStreamConfig configures internal/agentstream.
type AgentStreamConfig struct {
	GRPCAddr       string
	MaxMessageSize int
}

// Config is the root configuration tree, loaded once at process start and
// passed down to every component constructor.
type Config struct {
	Env string

	DB          DBConfig
	Vector      VectorConfig
	TaskFabric  TaskFabricConfig
	RSS         RSSConfig
	Watcher     WatcherConfig
	AgentStream AgentStreamConfig

	UploadsRoot  string
	OpenAIAPIKey string
}

// Load reads configuration from (in ascending priority) defaults, a .env
// file if present, and the process environment, the way the teacher's
// cmd/hive-server/main.go loads godotenv before reading flags/env. envFile
// may be empty, in which case only ".env" in the working directory (if
// present) is consulted.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		Env: v.GetString("env"),
		DB: DBConfig{
			DSN:              v.GetString("db.dsn"),
			Mode:             v.GetString("db.mode"),
			MaxConns:         v.GetInt32("db.max_conns"),
			HealthCheckEvery: v.GetDuration("db.health_check_every"),
		},
		Vector: VectorConfig{
			Addr:             v.GetString("vector.addr"),
			GlobalCollection: v.GetString("vector.global_collection"),
			ToolsCollection:  v.GetString("vector.tools_collection"),
			Dimension:        v.GetInt("vector.dimension"),
		},
		TaskFabric: TaskFabricConfig{
			RedisAddr:     v.GetString("task_fabric.redis_addr"),
			RedisDB:       v.GetInt("task_fabric.redis_db"),
			RedisPassword: v.GetString("task_fabric.redis_password"),
			WorkerCount:   v.GetInt("task_fabric.worker_count"),
			ResultTTL:     v.GetDuration("task_fabric.result_ttl"),
		},
		RSS: RSSConfig{
			PollInterval:     v.GetDuration("rss.poll_interval"),
			StuckSweepEvery:  v.GetDuration("rss.stuck_sweep_every"),
			RetentionWindow:  v.GetDuration("rss.retention_window"),
			StuckPollTimeout: v.GetDuration("rss.stuck_poll_timeout"),
		},
		Watcher: WatcherConfig{
			WatchRoots:     v.GetStringSlice("watcher.watch_roots"),
			DebounceWindow: v.GetDuration("watcher.debounce_window"),
		},
		AgentStream: AgentStreamConfig{
			GRPCAddr:       v.GetString("agentstream.grpc_addr"),
			MaxMessageSize: v.GetInt("agentstream.max_message_size"),
		},
		UploadsRoot:  v.GetString("uploads_root"),
		OpenAIAPIKey: v.GetString("openai_api_key"),
	}

	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("config: DB_DSN is required")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("db.mode", "pooled")
	v.SetDefault("db.max_conns", int32(10))
	v.SetDefault("db.health_check_every", 30*time.Second)
	v.SetDefault("vector.addr", "127.0.0.1:6334")
	v.SetDefault("vector.global_collection", "global_documents")
	v.SetDefault("vector.tools_collection", "tools")
	v.SetDefault("vector.dimension", 1536)
	v.SetDefault("task_fabric.redis_addr", "127.0.0.1:6379")
	v.SetDefault("task_fabric.redis_db", 0)
	v.SetDefault("task_fabric.worker_count", 5)
	v.SetDefault("task_fabric.result_ttl", time.Hour)
	v.SetDefault("rss.poll_interval", time.Minute)
	v.SetDefault("rss.stuck_sweep_every", 30*time.Minute)
	v.SetDefault("rss.retention_window", 14*24*time.Hour)
	v.SetDefault("rss.stuck_poll_timeout", 30*time.Minute)
	v.SetDefault("watcher.debounce_window", 2*time.Second)
	v.SetDefault("agentstream.grpc_addr", "127.0.0.1:50052")
	v.SetDefault("agentstream.max_message_size", 100*1024*1024)
	v.SetDefault("uploads_root", "./uploads")
}
