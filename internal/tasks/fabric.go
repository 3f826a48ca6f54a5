// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TaskState enumerates the pending -> started -> (success|failure|cancelled)
// transitions of invariant I7. A terminal state is never left once entered.
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateStarted   TaskState = "started"
	StateSuccess   TaskState = "success"
	StateFailure   TaskState = "failure"
	StateCancelled TaskState = "cancelled"
)

func (s TaskState) terminal() bool {
	return s == StateSuccess || s == StateFailure || s == StateCancelled
}

// Progress is advisory only, per spec §3.2 I7 — never authoritative for
// success or failure.
type Progress struct {
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Status is the record returned by Fabric.Status. Result carries either the
// task's actual (small) return value, or a Marker when the real payload was
// routed through the ResultStash.
type Status struct {
	TaskID    string          `json:"taskId"`
	Name      string          `json:"name"`
	State     TaskState       `json:"state"`
	Progress  Progress        `json:"progress"`
	Result    json.RawMessage `json:"result,omitempty"`
	Failure   *FailureMeta    `json:"failure,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

const statusTTL = 24 * time.Hour

func statusKey(taskID string) string { return "task_status:" + taskID }
func cancelKey(taskID string) string { return "task_cancel:" + taskID }

// HandlerFunc processes one job and returns its (small) result.
type HandlerFunc func(ctx context.Context, job Job) (any, error)

// Fabric is the durable task runtime: named queues plus a Redis-backed
// status store, generalizing internal/worker/worker.go's StartWorkers
// goroutine-pool idiom into the submit/status/cancel API of spec §4.7.
type Fabric struct {
	client *redis.Client
	log    zerolog.Logger

	mu     sync.RWMutex
	queues map[string]Queue
}

func NewFabric(client *redis.Client, log zerolog.Logger) *Fabric {
	return &Fabric{client: client, log: log, queues: make(map[string]Queue)}
}

// RegisterQueue binds a queue name (one of the Queue* constants) to its
// backing implementation. Submit and StartWorkers both look up by name.
func (f *Fabric) RegisterQueue(name string, q Queue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[name] = q
}

func (f *Fabric) queue(name string) (Queue, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	q, ok := f.queues[name]
	if !ok {
		return nil, fmt.Errorf("tasks: no queue registered for %q", name)
	}
	return q, nil
}

// Submit enqueues a task under queueName and returns its task id. Submit is
// non-blocking: it only writes the pending status record and pushes the
// job onto the broker.
func (f *Fabric) Submit(ctx context.Context, queueName string, args any) (string, error) {
	q, err := f.queue(queueName)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal task args: %w", err)
	}

	taskID := uuid.NewString()
	job := Job{TaskID: taskID, Name: queueName, Payload: payload, CreatedAt: time.Now()}

	if err := f.writeStatus(ctx, Status{TaskID: taskID, Name: queueName, State: StatePending, UpdatedAt: time.Now()}); err != nil {
		return "", err
	}
	if err := q.Enqueue(ctx, job); err != nil {
		return "", err
	}
	return taskID, nil
}

// Status is authoritative: callers should poll it rather than trust
// progress messages for success/failure, per spec §4.7.
func (f *Fabric) Status(ctx context.Context, taskID string) (*Status, error) {
	data, err := f.client.Get(ctx, statusKey(taskID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("tasks: unknown task %q", taskID)
		}
		return nil, err
	}
	var st Status
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Cancel marks a task cancelled. It is best-effort: a worker checks the
// cancel flag only before starting a job; a handler already running is not
// interrupted, and its later progress and result are dropped because the
// task is already terminal. Per I7, a terminal task is left untouched.
func (f *Fabric) Cancel(ctx context.Context, taskID string) error {
	st, err := f.Status(ctx, taskID)
	if err != nil {
		return err
	}
	if st.State.terminal() {
		return nil
	}
	if err := f.client.Set(ctx, cancelKey(taskID), "1", statusTTL).Err(); err != nil {
		return err
	}
	st.State = StateCancelled
	st.UpdatedAt = time.Now()
	return f.writeStatus(ctx, *st)
}

func (f *Fabric) isCancelled(ctx context.Context, taskID string) bool {
	n, _ := f.client.Exists(ctx, cancelKey(taskID)).Result()
	return n > 0
}

func (f *Fabric) writeStatus(ctx context.Context, st Status) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return f.client.SetEx(ctx, statusKey(st.TaskID), data, statusTTL).Err()
}

// transition overwrites a task's status unless it has already reached a
// terminal state, enforcing I7's one-way pending -> started ->
// (success|failure|cancelled) path.
func (f *Fabric) transition(ctx context.Context, taskID, name string, state TaskState, mutate func(*Status)) {
	cur, err := f.Status(ctx, taskID)
	if err != nil {
		cur = &Status{TaskID: taskID, Name: name}
	}
	if cur.State.terminal() {
		return
	}
	cur.State = state
	cur.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(cur)
	}
	if err := f.writeStatus(ctx, *cur); err != nil {
		f.log.Warn().Err(err).Str("task_id", taskID).Msg("failed to persist task status")
	}
}

// StartWorkers runs a pool of workers draining queueName, applying rl's
// per-task-name rate limit, retry count, and backoff base. It blocks until
// ctx is cancelled.
func (f *Fabric) StartWorkers(ctx context.Context, queueName string, handler HandlerFunc, workerCount int, rl RateLimit) error {
	q, err := f.queue(queueName)
	if err != nil {
		return err
	}

	var lim *limiter
	if rl.Interval > 0 {
		lim = newLimiter(rl.Interval)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		workerID := i + 1
		go func() {
			defer wg.Done()
			f.workerLoop(ctx, q, handler, rl, lim, workerID)
		}()
	}
	wg.Wait()
	return nil
}

func (f *Fabric) workerLoop(ctx context.Context, q Queue, handler HandlerFunc, rl RateLimit, lim *limiter, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := q.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			f.log.Warn().Err(err).Int("worker", workerID).Msg("dequeue error, continuing")
			continue
		}

		if lim != nil {
			if d := time.Until(lim.nextAllowed()); d > 0 {
				timer := time.NewTimer(d)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
		}

		f.runJob(ctx, job, handler, rl, workerID)
	}
}

// runJob executes handler with the attempt/backoff/DLQ shape grounded on
// intelligencedev-manifold/internal/orchestrator/kafka.go's
// StartKafkaConsumer worker loop: retry on error up to MaxAttempts with
// exponential backoff from RetryBase, giving up (recording failure) once
// attempts are exhausted or the context is cancelled.
func (f *Fabric) runJob(ctx context.Context, job Job, handler HandlerFunc, rl RateLimit, workerID int) {
	if f.isCancelled(ctx, job.TaskID) {
		return
	}
	f.transition(ctx, job.TaskID, job.Name, StateStarted, nil)

	maxAttempts := rl.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	var softTimeLimit bool
	attempt := job.Attempt

	for {
		attempt++
		result, err := handler(ctx, job)
		if err == nil {
			data, merr := json.Marshal(result)
			if merr != nil {
				f.log.Warn().Err(merr).Str("task_id", job.TaskID).Msg("failed to marshal task result")
			}
			f.transition(ctx, job.TaskID, job.Name, StateSuccess, func(st *Status) { st.Result = data })
			return
		}

		lastErr = err
		softTimeLimit = errors.Is(err, context.DeadlineExceeded)

		if attempt < maxAttempts && ctx.Err() == nil {
			backoff := rl.RetryBase
			if backoff <= 0 {
				backoff = time.Second
			}
			backoff *= time.Duration(1 << uint(attempt-1))
			f.log.Warn().Err(err).Int("worker", workerID).Str("task_id", job.TaskID).
				Int("attempt", attempt).Dur("backoff", backoff).Msg("task failed, retrying")

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		break
	}

	meta := CaptureFailure(lastErr, softTimeLimit)
	f.transition(ctx, job.TaskID, job.Name, StateFailure, func(st *Status) { st.Failure = &meta })
	f.log.Error().Str("task_id", job.TaskID).Str("error_type", meta.ErrorType).Msg("task failed permanently")
}

// UpdateProgress records an advisory progress checkpoint. It never changes
// State and is ignored once the task has reached a terminal state.
func (f *Fabric) UpdateProgress(ctx context.Context, taskID string, progress Progress) {
	st, err := f.Status(ctx, taskID)
	if err != nil || st.State.terminal() {
		return
	}
	st.Progress = progress
	st.UpdatedAt = time.Now()
	if err := f.writeStatus(ctx, *st); err != nil {
		f.log.Warn().Err(err).Str("task_id", taskID).Msg("failed to persist task progress")
	}
}
