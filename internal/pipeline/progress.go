package pipeline

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// progressInterval is how many processed records between throughput log lines.
const progressInterval = 100

// Tracker accumulates success/skip/fail counts and logs periodic throughput.
// Purely observational; it never affects the pipeline outcome.
type Tracker struct {
	total     int
	name      string
	logger    *slog.Logger
	clock     clockwork.Clock
	startedAt time.Time

	processed int
	success   int
	skipped   int
	failed    int
}

// NewTracker creates a Tracker for a run of total records.
func NewTracker(total int, name string, logger *slog.Logger, clock clockwork.Clock) *Tracker {
	return &Tracker{
		total:     total,
		name:      name,
		logger:    logger,
		clock:     clock,
		startedAt: clock.Now(),
	}
}

// Success records a successfully transformed record.
func (t *Tracker) Success() {
	t.success++
	t.increment()
}

// Skip records a rejected record.
func (t *Tracker) Skip() {
	t.skipped++
	t.increment()
}

// Fail records a failed record.
func (t *Tracker) Fail() {
	t.failed++
	t.increment()
}

func (t *Tracker) increment() {
	t.processed++
	if t.processed%progressInterval == 0 {
		t.logProgress()
	}
}

func (t *Tracker) logProgress() {
	elapsed := t.clock.Since(t.startedAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(t.processed) / elapsed
	}
	remaining := 0.0
	if rate > 0 {
		remaining = float64(t.total-t.processed) / rate
	}

	t.logger.Info("progress",
		"name", t.name,
		"processed", t.processed,
		"total", t.total,
		"success", t.success,
		"skipped", t.skipped,
		"failed", t.failed,
		"rate_per_sec", rate,
		"eta_seconds", remaining,
	)
}

// Summary logs the final counters for the run.
func (t *Tracker) Summary() {
	t.logger.Info("ingestion complete",
		"name", t.name,
		"processed", t.processed,
		"success", t.success,
		"skipped", t.skipped,
		"failed", t.failed,
		"elapsed_seconds", t.clock.Since(t.startedAt).Seconds(),
	)
}
