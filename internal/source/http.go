package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nwheritage/heritage-data-etl/internal/domain"
)

// DefaultFetchTimeout bounds a remote GeoJSON fetch.
const DefaultFetchTimeout = 60 * time.Second

// AreaEndpoints maps boroughs to their conservation-area GeoJSON endpoints.
// Used when no input file is given; more boroughs get added as their open
// data portals publish boundary exports.
var AreaEndpoints = map[string]string{
	"Camden": "https://opendata.camden.gov.uk/api/geospatial/conservation-areas?method=export&format=GeoJSON",
	"Barnet": "https://open.barnet.gov.uk/download/conservation-areas/geojson",
}

// Fetcher retrieves raw features from remote GeoJSON endpoints.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher with the given request timeout; zero means
// DefaultFetchTimeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// FetchFeatures GETs a GeoJSON endpoint and returns its features. Any failure
// logs and returns an empty slice; remote sources are best-effort by
// contract.
func (f *Fetcher) FetchFeatures(ctx context.Context, url string) []domain.RawFeature {
	f.logger.Info("fetching features", "url", url)

	features, err := f.fetch(ctx, url)
	if err != nil {
		f.logger.Error("fetch failed", "url", url, "error", err)
		return nil
	}
	if len(features) == 0 {
		f.logger.Warn("no features in response", "url", url)
	}
	return features
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]domain.RawFeature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var collection struct {
		Features []domain.RawFeature `json:"features"`
	}
	if err := json.Unmarshal(body, &collection); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return collection.Features, nil
}
