// Command heritage-etl ingests NW London planning and heritage data into a
// PostGIS-enabled Postgres database.
//
// Two pipelines share the same shape: read raw GeoJSON features from a file
// or remote endpoint, normalize each into a canonical record, filter to the
// six target boroughs, and upsert keyed on the record's natural key.
//
//	heritage-etl buildings --file listed_buildings.geojson
//	heritage-etl areas --file conservation_areas.geojson --dry-run
//	heritage-etl areas --borough Camden
//
// Partial failures are counted, not fatal: the process exits 0 after a run
// that skipped or failed individual records, and exits 1 only for setup
// problems (missing input, bad path, unreachable database).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	httpadapter "github.com/nwheritage/heritage-data-etl/internal/adapter/http"
	"github.com/nwheritage/heritage-data-etl/internal/config"
	"github.com/nwheritage/heritage-data-etl/internal/observability"
)

func main() {
	// .env is a development convenience; deployments set real env vars.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "heritage-etl",
		Short:        "Ingest NW London planning and heritage data",
		SilenceUsage: true,
	}
	root.AddCommand(newBuildingsCmd(), newAreasCmd())
	return root
}

// runEnv is the shared wiring for one subcommand invocation.
type runEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	runID   string
}

func setupEnv() (*runEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	runID := uuid.NewString()
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With("run_id", runID)
	return &runEnv{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
		runID:   runID,
	}, nil
}

// startMetricsServer starts the health/metrics endpoint when configured and
// returns a shutdown func.
func startMetricsServer(env *runEnv, ready httpadapter.ReadinessChecker) func() {
	if env.cfg.MetricsAddr == "" {
		return func() {}
	}

	srv := httpadapter.NewServer(env.cfg.MetricsAddr, ready, env.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.logger.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			env.logger.Error("metrics server shutdown error", "error", err)
		}
	}
}
