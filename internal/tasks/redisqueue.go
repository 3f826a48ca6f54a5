// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisQueue implements Queue using a Redis List, one key per queue name.
// Adapted from internal/queue/redis_queue.go: same RPUSH/BLPOP shape, with
// log.Printf replaced by the project's zerolog logger and the key fixed to
// one of the constants in queue.go instead of a caller-supplied string.
type RedisQueue struct {
	client *redis.Client
	key    string
	log    zerolog.Logger
}

// NewRedisQueue creates a Redis-backed queue bound to the given queue name.
func NewRedisQueue(client *redis.Client, queueName string, log zerolog.Logger) (*RedisQueue, error) {
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisQueue{client: client, key: "tasks:" + queueName, log: log.With().Str("queue", queueName).Logger()}, nil
}

// Enqueue adds a job to the queue using RPUSH.
func (r *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	r.log.Debug().Str("task_id", job.TaskID).Msg("enqueued task")
	return nil
}

// Dequeue blocks until a job is available using BLPOP, then returns it.
func (r *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	type result struct {
		val []string
		err error
	}
	resultChan := make(chan result, 1)

	go func() {
		val, err := r.client.BLPop(ctx, 0, r.key).Result()
		resultChan <- result{val: val, err: err}
	}()

	select {
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case res := <-resultChan:
		if res.err != nil {
			if res.err == redis.Nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("blpop: %w", res.err)
		}
		if len(res.val) < 2 {
			return Job{}, fmt.Errorf("unexpected blpop result shape")
		}
		var job Job
		if err := json.Unmarshal([]byte(res.val[1]), &job); err != nil {
			return Job{}, fmt.Errorf("unmarshal job: %w", err)
		}
		return job, nil
	}
}
