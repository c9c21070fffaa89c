// Package source obtains raw features from local files or remote endpoints.
//
// File paths are validated before reading: only .json/.geojson extensions,
// never under system directories, and optionally confined to a configured
// base directory. Remote fetches are bounded by a timeout and absorb every
// failure into an empty result, so one dead endpoint never kills a run.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nwheritage/heritage-data-etl/internal/domain"
)

var allowedExtensions = map[string]bool{
	".json":    true,
	".geojson": true,
}

// sensitivePatterns blocks reads from system directories regardless of how
// the path was spelled.
var sensitivePatterns = []string{
	"/etc/", "/var/", "/usr/", "/root/",
	`\windows\`, `\system32\`, `\program files\`,
}

// ValidatePath resolves a data file path and enforces the safety contract:
// allow-listed extension, existing regular file, no sensitive system
// directories, and containment within baseDir when baseDir is non-empty.
func ValidatePath(path, baseDir string) (string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	if resolvedLinks, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = resolvedLinks
	}

	if !allowedExtensions[strings.ToLower(filepath.Ext(resolved))] {
		return "", fmt.Errorf("invalid file extension %q: allowed extensions are .json and .geojson", filepath.Ext(resolved))
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("file does not exist: %s", resolved)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is not a file: %s", resolved)
	}

	lower := strings.ToLower(resolved)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lower, pattern) {
			return "", fmt.Errorf("access to system directories is not allowed")
		}
	}

	if baseDir != "" {
		base, err := filepath.Abs(baseDir)
		if err != nil {
			return "", fmt.Errorf("resolve base directory %q: %w", baseDir, err)
		}
		rel, err := filepath.Rel(base, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("file must be within allowed directory %s", base)
		}
	}

	return resolved, nil
}

// ReadFeatures loads raw features from a local JSON or GeoJSON file after
// path validation. The payload may be a FeatureCollection or a bare array of
// flat records.
func ReadFeatures(path, baseDir string) ([]domain.RawFeature, error) {
	validated, err := ValidatePath(path, baseDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(validated)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", validated, err)
	}
	return decodeFeatures(data, validated)
}

func decodeFeatures(data []byte, origin string) ([]domain.RawFeature, error) {
	var collection struct {
		Features []domain.RawFeature `json:"features"`
	}
	if err := json.Unmarshal(data, &collection); err == nil && collection.Features != nil {
		return collection.Features, nil
	}

	var records []domain.RawFeature
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	return nil, fmt.Errorf("unexpected data format in %s", origin)
}
