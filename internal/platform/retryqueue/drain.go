package retryqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrc/nrc/internal/platform/telemetry"
)

// Config controls how a drain retries tasks.
type Config struct {
	// MaxAttempts is the number of failed applications after which a task
	// is dropped.
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultConfig returns the retry settings used by the server.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ErrStale is returned by a Handler that decided not to apply a task
// because the entities changed after it was queued. Drain removes the task
// without retrying it.
var ErrStale = errors.New("task no longer applies")

// Handler applies one task.
type Handler func(ctx context.Context, t Task) error

// Result summarises one drain.
type Result struct {
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Retried int    `json:"retried"`
	Dropped []Task `json:"dropped"`
}

// Drain processes the tasks queued when it starts. A failed task goes back on
// the queue with its attempt count raised, or is dropped and logged once it
// reaches cfg.MaxAttempts. After each failure the drain waits with
// exponential backoff before the next task.
func Drain(ctx context.Context, q Queue, apply Handler, cfg Config, logger zerolog.Logger, tp *telemetry.Provider) (Result, error) {
	res := Result{Dropped: []Task{}}
	n, err := q.Len(ctx)
	if err != nil {
		return res, fmt.Errorf("queue length: %w", err)
	}

	delay := cfg.InitialDelay
	for i := int64(0); i < n; i++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		t, err := q.Pop(ctx)
		if err != nil {
			return res, fmt.Errorf("pop task: %w", err)
		}
		if t == nil {
			break
		}

		err = apply(ctx, *t)
		if err == nil {
			res.Applied++
			tp.Compensation("applied")
			logger.Info().Str("kind", t.Kind).Str("entity_id", t.EntityID).Int("attempts", t.Attempts+1).Msg("compensation applied")
			delay = cfg.InitialDelay
			continue
		}
		if errors.Is(err, ErrStale) {
			res.Skipped++
			tp.Compensation("skipped")
			logger.Warn().Err(err).Str("kind", t.Kind).Str("entity_id", t.EntityID).Str("operation", t.Operation).Msg("stale compensation skipped")
			continue
		}

		t.Attempts++
		t.LastError = err.Error()
		if cfg.MaxAttempts > 0 && t.Attempts >= cfg.MaxAttempts {
			res.Dropped = append(res.Dropped, *t)
			tp.Compensation("dropped")
			logger.Error().Err(err).Str("kind", t.Kind).Str("entity_id", t.EntityID).Int("attempts", t.Attempts).
				Interface("patch", t.Patch).Msg("compensation dropped after max attempts, manual repair required")
		} else {
			if err := q.Push(ctx, *t); err != nil {
				return res, fmt.Errorf("requeue task: %w", err)
			}
			res.Retried++
			tp.Compensation("retried")
			logger.Warn().Err(err).Str("kind", t.Kind).Str("entity_id", t.EntityID).Int("attempts", t.Attempts).Msg("compensation failed, requeued")
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(delay):
			}
		}
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return res, nil
}
