package pipeline

import (
	"context"
	"log/slog"
)

// teeLoader writes to a primary loader and mirrors successes to a secondary
// one. Mirror failures are logged and dropped: the datastore is the source of
// truth, the mirror is best-effort.
type teeLoader[R any] struct {
	primary Loader[R]
	mirror  Loader[R]
	logger  *slog.Logger
}

// Tee wraps a primary Loader with a best-effort mirror.
func Tee[R any](primary, mirror Loader[R], logger *slog.Logger) Loader[R] {
	return &teeLoader[R]{primary: primary, mirror: mirror, logger: logger}
}

func (t *teeLoader[R]) LoadBatch(ctx context.Context, records []R) error {
	if err := t.primary.LoadBatch(ctx, records); err != nil {
		return err
	}
	if err := t.mirror.LoadBatch(ctx, records); err != nil {
		t.logger.Warn("mirror batch publish failed", "count", len(records), "error", err)
	}
	return nil
}

func (t *teeLoader[R]) Load(ctx context.Context, record R) error {
	if err := t.primary.Load(ctx, record); err != nil {
		return err
	}
	if err := t.mirror.Load(ctx, record); err != nil {
		t.logger.Warn("mirror publish failed", "error", err)
	}
	return nil
}
