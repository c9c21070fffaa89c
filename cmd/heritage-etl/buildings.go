package main

import (
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nwheritage/heritage-data-etl/internal/adapter/kafka"
	"github.com/nwheritage/heritage-data-etl/internal/adapter/postgres"
	"github.com/nwheritage/heritage-data-etl/internal/domain"
	"github.com/nwheritage/heritage-data-etl/internal/pipeline"
	"github.com/nwheritage/heritage-data-etl/internal/source"
)

func newBuildingsCmd() *cobra.Command {
	var (
		file        string
		borough     string
		dryRun      bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "buildings",
		Short: "Ingest Historic England listed building records",
		Long: `Ingest listed buildings from a Historic England GeoJSON or JSON export.

Historic England does not offer a public API for bulk listing data, so the
input file is mandatory. Exports are available from
https://historicengland.org.uk/listing/the-list/data-downloads/`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("--file is required: download an export from https://historicengland.org.uk/listing/the-list/data-downloads/")
			}

			env, err := setupEnv()
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				env.cfg.MetricsAddr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			features, err := source.ReadFeatures(file, env.cfg.DataDir)
			if err != nil {
				return err
			}

			targets := domain.DefaultTargets()
			transform := func(f domain.RawFeature) (domain.ListedBuilding, error) {
				rec, err := domain.TransformListedBuilding(f, targets, env.logger)
				if err != nil {
					return rec, err
				}
				if borough != "" && !strings.EqualFold(rec.Borough, borough) {
					return rec, &domain.SkipError{Reason: "outside requested borough"}
				}
				return rec, nil
			}

			var loader pipeline.Loader[domain.ListedBuilding]
			if !dryRun {
				store, err := postgres.NewStore(ctx, env.cfg.DatabaseURL, env.logger)
				if err != nil {
					return err
				}
				defer store.Close()
				loader = store.Buildings()

				if len(env.cfg.KafkaBrokers) > 0 {
					writer := kafka.NewWriter(env.cfg.KafkaBrokers, env.cfg.KafkaTopic, env.runID, env.logger)
					defer writer.Close()
					mirror := kafka.NewMirror(writer, "listed_building", func(r domain.ListedBuilding) string {
						return r.ListEntryNumber
					})
					loader = pipeline.Tee(loader, mirror, env.logger)
				}
			}

			p := pipeline.New("listed-buildings", transform, loader, env.logger, env.metrics,
				pipeline.WithBatchSize(env.cfg.BatchSize),
				pipeline.WithDryRun(dryRun),
			)

			shutdownMetrics := startMetricsServer(env, p)
			defer shutdownMetrics()

			stats, err := p.Run(ctx, features)
			if err != nil {
				return err
			}
			env.logger.Info("listed building ingestion complete", "stats", stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a Historic England GeoJSON or JSON export")
	cmd.Flags().StringVar(&borough, "borough", "", "only load records from this borough")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "transform and report without writing to the database")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve health and metrics endpoints on this address")
	return cmd
}
