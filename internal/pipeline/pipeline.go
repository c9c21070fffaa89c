// Package pipeline runs the transform-and-load loop over a batch of raw
// features. Processing is single-threaded and synchronous: every transform
// call is independent, skips and failures are counted rather than propagated,
// and only setup problems ever abort a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nwheritage/heritage-data-etl/internal/domain"
	"github.com/nwheritage/heritage-data-etl/internal/observability"
)

// TransformFunc converts one raw feature into a canonical record. A returned
// *domain.SkipError marks a rejection; any other error is a transform
// failure. Both continue the run.
type TransformFunc[R any] func(domain.RawFeature) (R, error)

// Loader persists canonical records. LoadBatch is the fast path; Load is the
// per-record fallback after a failed batch.
type Loader[R any] interface {
	LoadBatch(ctx context.Context, records []R) error
	Load(ctx context.Context, record R) error
}

// Stats summarises one ingestion run.
type Stats struct {
	Total       int `json:"total"`
	Transformed int `json:"transformed"`
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// LogValue implements slog.LogValuer for structured run summaries.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("transformed", s.Transformed),
		slog.Int("inserted", s.Inserted),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
	)
}

// Pipeline orchestrates one transform-and-load run for a record type.
type Pipeline[R any] struct {
	name      string
	transform TransformFunc[R]
	loader    Loader[R]
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	batchSize int
	dryRun    bool
	ready     atomic.Bool
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	batchSize int
	dryRun    bool
	clock     clockwork.Clock
}

// WithBatchSize overrides the persistence batch size (default 100).
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithDryRun disables the load stage; the loader is never invoked.
func WithDryRun(dryRun bool) Option {
	return func(o *options) { o.dryRun = dryRun }
}

// WithClock swaps the progress tracker's time source, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates a Pipeline. The loader may be nil only for dry runs.
func New[R any](name string, transform TransformFunc[R], loader Loader[R], logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline[R] {
	o := options{batchSize: 100, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline[R]{
		name:      name,
		transform: transform,
		loader:    loader,
		logger:    logger,
		metrics:   metrics,
		clock:     o.clock,
		batchSize: o.batchSize,
		dryRun:    o.dryRun,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// feature.
func (p *Pipeline[R]) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any features yet")
	}
	return nil
}

// Run transforms every feature and upserts the survivors in batches. Skips
// and per-record failures are absorbed into the returned Stats; the error is
// non-nil only when the context is cancelled mid-run.
func (p *Pipeline[R]) Run(ctx context.Context, features []domain.RawFeature) (Stats, error) {
	stats := Stats{Total: len(features)}
	if len(features) == 0 {
		p.logger.Warn("no features to process", "pipeline", p.name)
		return stats, nil
	}

	p.logger.Info("processing features", "pipeline", p.name, "count", len(features))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	tracker := NewTracker(len(features), p.name, p.logger, p.clock)
	records := make([]R, 0, len(features))

	for _, feature := range features {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p.metrics.FeaturesRead.Inc()
		p.ready.Store(true)

		record, err := p.transformOne(feature)
		switch {
		case err == nil:
			records = append(records, record)
			tracker.Success()
		case isSkip(err):
			p.logger.Debug("record skipped", "pipeline", p.name, "reason", err.Error())
			p.metrics.RecordsSkipped.Inc()
			stats.Skipped++
			tracker.Skip()
		default:
			p.logger.Error("transform failed", "pipeline", p.name, "error", err)
			p.metrics.TransformErrors.Inc()
			stats.Skipped++
			tracker.Skip()
		}
	}

	stats.Transformed = len(records)
	p.metrics.RecordsTransformed.Add(float64(len(records)))
	p.logger.Info("transformed valid records", "pipeline", p.name, "count", len(records))

	if p.dryRun {
		p.logger.Info("dry run, not inserting data", "pipeline", p.name)
		tracker.Summary()
		return stats, nil
	}

	inserted, failed, err := p.load(ctx, records)
	stats.Inserted = inserted
	stats.Failed = failed
	tracker.Summary()
	return stats, err
}

// transformOne invokes the transform with panic absorption: an unexpected
// failure in field extraction becomes a transform failure, never a crash.
func (p *Pipeline[R]) transformOne(feature domain.RawFeature) (record R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return p.transform(feature)
}

// load upserts records in batches. A failed batch falls back to per-record
// upserts so one bad record cannot sink its batch-mates.
func (p *Pipeline[R]) load(ctx context.Context, records []R) (inserted, failed int, err error) {
	for start := 0; start < len(records); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return inserted, failed, err
		}

		end := min(start+p.batchSize, len(records))
		batch := records[start:end]

		batchStart := time.Now()
		if err := p.loader.LoadBatch(ctx, batch); err != nil {
			p.logger.Error("batch upsert failed, retrying records individually",
				"pipeline", p.name, "batch_size", len(batch), "error", err)
			for _, record := range batch {
				if err := p.loader.Load(ctx, record); err != nil {
					p.logger.Error("upsert failed", "pipeline", p.name, "error", err)
					p.metrics.UpsertFailures.Inc()
					failed++
					continue
				}
				inserted++
			}
		} else {
			inserted += len(batch)
		}
		p.metrics.BatchDuration.Observe(time.Since(batchStart).Seconds())
	}

	p.metrics.RecordsUpserted.Add(float64(inserted))
	return inserted, failed, nil
}

func isSkip(err error) bool {
	var skip *domain.SkipError
	return errors.As(err, &skip)
}
