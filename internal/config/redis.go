// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient constructs and pings a Redis client from a
// TaskFabricConfig, replacing the teacher's environment-variable-only
// NewRedisClient with one driven by the typed Config tree.
func NewRedisClient(ctx context.Context, cfg TaskFabricConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("config: ping redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
