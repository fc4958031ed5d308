package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nrc/nrc/internal/platform/record"
	"github.com/nrc/nrc/internal/platform/telemetry"
)

// Fallback tries the primary backend and, when it fails, repeats the call
// against the secondary. The choice is made per call. A call commits to
// exactly one backend: the primary's writes are single statements, so a
// failed primary call has changed nothing.
//
// NotFound from a reachable primary is definitive and is not retried, and a
// cancelled context stops the call instead of falling back.
type Fallback struct {
	primary   Backend
	secondary Backend
	logger    zerolog.Logger
	telemetry *telemetry.Provider
}

// NewFallback builds the policy backend. primary may be nil, in which case
// every call goes to secondary.
func NewFallback(primary, secondary Backend, logger zerolog.Logger, tp *telemetry.Provider) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "store").Logger(),
		telemetry: tp,
	}
}

func (f *Fallback) Name() string {
	if f.primary == nil {
		return f.secondary.Name()
	}
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *Fallback) List(ctx context.Context, s *record.Schema, q Query) ([]record.Values, int, error) {
	var (
		rows  []record.Values
		total int
	)
	err := f.run(ctx, s.Table, "list", func(b Backend) error {
		var err error
		rows, total, err = b.List(ctx, s, q)
		return err
	})
	return rows, total, err
}

func (f *Fallback) Get(ctx context.Context, s *record.Schema, id string) (record.Values, error) {
	var row record.Values
	err := f.run(ctx, s.Table, "get", func(b Backend) error {
		var err error
		row, err = b.Get(ctx, s, id)
		return err
	})
	return row, err
}

func (f *Fallback) Insert(ctx context.Context, s *record.Schema, row record.Values) (record.Values, error) {
	var stored record.Values
	err := f.run(ctx, s.Table, "insert", func(b Backend) error {
		var err error
		stored, err = b.Insert(ctx, s, row)
		return err
	})
	return stored, err
}

func (f *Fallback) Update(ctx context.Context, s *record.Schema, id string, patch record.Values) (record.Values, error) {
	var merged record.Values
	err := f.run(ctx, s.Table, "update", func(b Backend) error {
		var err error
		merged, err = b.Update(ctx, s, id, patch)
		return err
	})
	return merged, err
}

func (f *Fallback) run(ctx context.Context, table, op string, call func(Backend) error) error {
	if f.primary != nil {
		err := f.call(f.primary, table, op, call)
		if err == nil || !shouldFallback(ctx, err) {
			return err
		}

		evt := f.logger.Warn()
		if errors.Is(err, ErrUnavailable) {
			evt = f.logger.Debug()
		}
		evt.Err(err).
			Str("table", table).
			Str("op", op).
			Str("primary", f.primary.Name()).
			Str("secondary", f.secondary.Name()).
			Msg("primary store failed, falling back")
		f.telemetry.Fallback(table, op)
	}

	err := f.call(f.secondary, table, op, call)
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.logger.Error().Err(err).
		Str("table", table).
		Str("op", op).
		Str("backend", f.secondary.Name()).
		Msg("store operation failed")
	return fmt.Errorf("%s %s: %w", op, table, ErrStoreFailure)
}

func (f *Fallback) call(b Backend, table, op string, fn func(Backend) error) error {
	err := fn(b)
	f.telemetry.StoreCall(b.Name(), table, op, outcome(err))
	return err
}

func shouldFallback(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrNotFound)
}
