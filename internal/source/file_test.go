package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	valid := writeDataFile(t, dir, "areas.geojson", "{}")

	t.Run("valid geojson file", func(t *testing.T) {
		resolved, err := ValidatePath(valid, "")
		require.NoError(t, err)
		assert.Equal(t, valid, resolved)
	})

	t.Run("valid json file", func(t *testing.T) {
		path := writeDataFile(t, dir, "buildings.json", "[]")
		_, err := ValidatePath(path, "")
		assert.NoError(t, err)
	})

	t.Run("disallowed extension", func(t *testing.T) {
		path := writeDataFile(t, dir, "notes.txt", "hi")
		_, err := ValidatePath(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid file extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ValidatePath(filepath.Join(dir, "nope.geojson"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("directory", func(t *testing.T) {
		sub := filepath.Join(dir, "data.json")
		require.NoError(t, os.Mkdir(sub, 0o755))
		_, err := ValidatePath(sub, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a file")
	})

	t.Run("sensitive directory", func(t *testing.T) {
		sensitive := filepath.Join(dir, "etc")
		require.NoError(t, os.Mkdir(sensitive, 0o755))
		path := writeDataFile(t, sensitive, "shadow.json", "{}")
		_, err := ValidatePath(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "system directories")
	})

	t.Run("inside base directory", func(t *testing.T) {
		_, err := ValidatePath(valid, dir)
		assert.NoError(t, err)
	})

	t.Run("outside base directory", func(t *testing.T) {
		other := t.TempDir()
		_, err := ValidatePath(valid, other)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "within allowed directory")
	})
}

func TestReadFeatures(t *testing.T) {
	dir := t.TempDir()

	t.Run("feature collection", func(t *testing.T) {
		path := writeDataFile(t, dir, "collection.geojson", `{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "geometry": {"type": "Point", "coordinates": [-0.1, 51.55]}, "properties": {"Name": "One"}},
				{"type": "Feature", "geometry": null, "properties": {"Name": "Two"}}
			]
		}`)

		features, err := ReadFeatures(path, dir)
		require.NoError(t, err)
		require.Len(t, features, 2)
		assert.Equal(t, "One", features[0].Properties["Name"])
		assert.NotNil(t, features[0].Geometry)
		assert.Nil(t, features[1].Geometry)
	})

	t.Run("flat record array", func(t *testing.T) {
		path := writeDataFile(t, dir, "flat.json", `[
			{"Name": "Keats House", "ListEntry": "1379211", "Longitude": "-0.168", "Latitude": "51.555"}
		]`)

		features, err := ReadFeatures(path, dir)
		require.NoError(t, err)
		require.Len(t, features, 1)
		assert.Equal(t, "Keats House", features[0].Properties["Name"])
	})

	t.Run("empty feature collection", func(t *testing.T) {
		path := writeDataFile(t, dir, "empty.geojson", `{"type": "FeatureCollection", "features": []}`)

		features, err := ReadFeatures(path, dir)
		require.NoError(t, err)
		assert.Empty(t, features)
	})

	t.Run("unexpected format", func(t *testing.T) {
		path := writeDataFile(t, dir, "weird.json", `{"rows": 12}`)

		_, err := ReadFeatures(path, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected data format")
	})

	t.Run("invalid path", func(t *testing.T) {
		_, err := ReadFeatures(filepath.Join(dir, "missing.geojson"), dir)
		assert.Error(t, err)
	})
}
