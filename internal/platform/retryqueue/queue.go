// Package retryqueue holds compensating writes that could not be applied
// when a cross-entity operation ran, and replays them later.
package retryqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task kinds.
const (
	KindBedUpdate     = "bed.update"
	KindPatientUpdate = "patient.update"
)

// Task is one pending write. Patch uses snake_case column names. Operation
// and PatientID name the workflow that queued it, so the handler can check
// the write still makes sense before applying it.
type Task struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	EntityID   string         `json:"entity_id"`
	Patch      map[string]any `json:"patch"`
	Operation  string         `json:"operation,omitempty"`
	PatientID  string         `json:"patient_id,omitempty"`
	Attempts   int            `json:"attempts"`
	LastError  string         `json:"last_error,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// Queue is a FIFO of tasks. Pop returns nil, nil when the queue is empty.
type Queue interface {
	Push(ctx context.Context, t Task) error
	Pop(ctx context.Context) (*Task, error)
	Len(ctx context.Context) (int64, error)
}

// RedisQueue stores tasks as JSON in a redis list: LPUSH to enqueue, RPOP to
// dequeue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Connect parses a redis:// URL, checks the server answers and returns a
// queue on key.
func Connect(ctx context.Context, url, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisQueue(client, key), nil
}

func (q *RedisQueue) Push(ctx context.Context, t Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

func (q *RedisQueue) Pop(ctx context.Context) (*Task, error) {
	b, err := q.client.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Ping checks the redis connection.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// MemoryQueue is the in-process queue used when no redis is configured.
// Tasks do not survive a restart.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks []Task
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return nil
}

func (q *MemoryQueue) Pop(_ context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return &t, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.tasks)), nil
}
