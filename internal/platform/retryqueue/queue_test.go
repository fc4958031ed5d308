package retryqueue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrc/nrc/internal/platform/telemetry"
)

func setupRedisQueue(t *testing.T) (*miniredis.Miniredis, *RedisQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisQueue(client, "nrc:compensations")
}

func bedTask(id string) Task {
	return Task{
		ID:         "t-" + id,
		Kind:       KindBedUpdate,
		EntityID:   id,
		Patch:      map[string]any{"status": "maintenance", "patient_id": nil},
		EnqueuedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRedisQueue_FIFO(t *testing.T) {
	mr, q := setupRedisQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, bedTask("bed-1")))
	require.NoError(t, q.Push(ctx, bedTask("bed-2")))
	assert.True(t, mr.Exists("nrc:compensations"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := q.Pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "bed-1", first.EntityID)
	assert.Equal(t, "maintenance", first.Patch["status"])
	v, ok := first.Patch["patient_id"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.True(t, first.EnqueuedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	second, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bed-2", second.EntityID)

	empty, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestRedisQueue_CorruptEntry(t *testing.T) {
	mr, q := setupRedisQueue(t)
	_, err := mr.Lpush("nrc:compensations", "{not json")
	require.NoError(t, err)

	_, err = q.Pop(context.Background())
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0", "k")
	require.NoError(t, err)
	defer q.Close()
	assert.NoError(t, q.Ping(context.Background()))

	_, err = Connect(context.Background(), "not-a-url", "k")
	assert.Error(t, err)
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	empty, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	require.NoError(t, q.Push(ctx, bedTask("bed-1")))
	require.NoError(t, q.Push(ctx, bedTask("bed-2")))
	n, _ := q.Len(ctx)
	assert.Equal(t, int64(2), n)

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bed-1", got.EntityID)
}

func noDelay(max int) Config {
	return Config{MaxAttempts: max, BackoffFactor: 2}
}

func TestDrain_AppliesAndRequeues(t *testing.T) {
	_, q := setupRedisQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, bedTask("bed-ok")))
	require.NoError(t, q.Push(ctx, bedTask("bed-down")))

	var seen []string
	apply := func(_ context.Context, task Task) error {
		seen = append(seen, task.EntityID)
		if task.EntityID == "bed-down" {
			return errors.New("store operation failed")
		}
		return nil
	}

	tp := telemetry.NewProvider()
	res, err := Drain(ctx, q, apply, noDelay(3), zerolog.Nop(), tp)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Retried)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, []string{"bed-ok", "bed-down"}, seen, "a drain only visits tasks queued when it started")

	left, err := q.Pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, 1, left.Attempts)
	assert.Equal(t, "store operation failed", left.LastError)
}

func TestDrain_DropsAfterMaxAttempts(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, bedTask("bed-1")))

	failing := func(context.Context, Task) error { return errors.New("still down") }
	cfg := noDelay(2)

	res, err := Drain(ctx, q, failing, cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)

	res, err = Drain(ctx, q, failing, cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, 2, res.Dropped[0].Attempts)

	n, _ := q.Len(ctx)
	assert.Zero(t, n)
}

func TestDrain_SkipsStaleTasks(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, bedTask("bed-1")))

	stale := func(context.Context, Task) error {
		return fmt.Errorf("bed-1 holds another patient: %w", ErrStale)
	}
	res, err := Drain(ctx, q, stale, noDelay(5), zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Applied)
	assert.Zero(t, res.Retried)
	assert.Empty(t, res.Dropped)

	n, _ := q.Len(ctx)
	assert.Zero(t, n, "a stale task is not requeued")
}

func TestDrain_StopsOnCancel(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Push(ctx, bedTask("bed-1")))
	require.NoError(t, q.Push(ctx, bedTask("bed-2")))

	cfg := Config{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 2}
	failing := func(context.Context, Task) error {
		cancel()
		return errors.New("down")
	}

	res, err := Drain(ctx, q, failing, cfg, zerolog.Nop(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Retried)
}
