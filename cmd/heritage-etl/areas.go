package main

import (
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nwheritage/heritage-data-etl/internal/adapter/kafka"
	"github.com/nwheritage/heritage-data-etl/internal/adapter/postgres"
	"github.com/nwheritage/heritage-data-etl/internal/domain"
	"github.com/nwheritage/heritage-data-etl/internal/pipeline"
	"github.com/nwheritage/heritage-data-etl/internal/source"
)

func newAreasCmd() *cobra.Command {
	var (
		file        string
		url         string
		borough     string
		dryRun      bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "areas",
		Short: "Ingest conservation area boundaries",
		Long: `Ingest conservation areas from a GeoJSON file or, when no file is given,
from the known London Datastore borough endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setupEnv()
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				env.cfg.MetricsAddr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var features []domain.RawFeature
			switch {
			case file != "":
				features, err = source.ReadFeatures(file, env.cfg.DataDir)
				if err != nil {
					return err
				}
			case url != "":
				fetcher := source.NewFetcher(env.cfg.FetchTimeout, env.logger)
				features = fetcher.FetchFeatures(ctx, url)
			default:
				fetcher := source.NewFetcher(env.cfg.FetchTimeout, env.logger)
				names := make([]string, 0, len(source.AreaEndpoints))
				for name := range source.AreaEndpoints {
					if borough != "" && !strings.EqualFold(borough, name) {
						continue
					}
					names = append(names, name)
				}
				if len(names) == 0 {
					return fmt.Errorf("no conservation area endpoint known for borough %q", borough)
				}
				sort.Strings(names)
				for _, name := range names {
					features = append(features, fetcher.FetchFeatures(ctx, source.AreaEndpoints[name])...)
				}
			}

			targets := domain.DefaultTargets()
			transform := func(f domain.RawFeature) (domain.ConservationArea, error) {
				rec, err := domain.TransformConservationArea(f, targets, env.logger)
				if err != nil {
					return rec, err
				}
				if borough != "" && !strings.EqualFold(rec.Borough, borough) {
					return rec, &domain.SkipError{Reason: "outside requested borough"}
				}
				return rec, nil
			}

			var loader pipeline.Loader[domain.ConservationArea]
			if !dryRun {
				store, err := postgres.NewStore(ctx, env.cfg.DatabaseURL, env.logger)
				if err != nil {
					return err
				}
				defer store.Close()
				loader = store.Areas()

				if len(env.cfg.KafkaBrokers) > 0 {
					writer := kafka.NewWriter(env.cfg.KafkaBrokers, env.cfg.KafkaTopic, env.runID, env.logger)
					defer writer.Close()
					mirror := kafka.NewMirror(writer, "conservation_area", func(r domain.ConservationArea) string {
						return r.Borough + "/" + r.Name
					})
					loader = pipeline.Tee(loader, mirror, env.logger)
				}
			}

			p := pipeline.New("conservation-areas", transform, loader, env.logger, env.metrics,
				pipeline.WithBatchSize(env.cfg.BatchSize),
				pipeline.WithDryRun(dryRun),
			)

			shutdownMetrics := startMetricsServer(env, p)
			defer shutdownMetrics()

			stats, err := p.Run(ctx, features)
			if err != nil {
				return err
			}
			env.logger.Info("conservation area ingestion complete", "stats", stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a GeoJSON export of conservation areas")
	cmd.Flags().StringVar(&url, "url", "", "fetch from this GeoJSON endpoint instead of the known borough endpoints")
	cmd.Flags().StringVar(&borough, "borough", "", "only load areas for this borough")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "transform and report without writing to the database")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve health and metrics endpoints on this address")
	return cmd
}
