package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFeature(t *testing.T, data string) RawFeature {
	t.Helper()
	var f RawFeature
	require.NoError(t, json.Unmarshal([]byte(data), &f))
	return f
}

func TestTransformListedBuilding(t *testing.T) {
	targets := DefaultTargets()
	logger := testLogger()

	t.Run("GeoJSON feature in target borough", func(t *testing.T) {
		f := rawFeature(t, `{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-0.1, 51.55]},
			"properties": {
				"ListEntry": 1379211,
				"Name": "Keats House",
				"Grade": "2*",
				"Location": "10 Keats Grove",
				"Postcode": "NW3 2RR",
				"LocalAuthority": "LB Camden",
				"ListDate": "01/03/1968",
				"Hyperlink": "https://historicengland.org.uk/listing/the-list/list-entry/1379211"
			}
		}`)

		rec, err := TransformListedBuilding(f, targets, logger)
		require.NoError(t, err)

		assert.Equal(t, "1379211", rec.ListEntryNumber)
		assert.Equal(t, "Keats House", rec.Name)
		assert.Equal(t, GradeIIStar, rec.Grade)
		assert.Equal(t, "Camden", rec.Borough)
		assert.Equal(t, -0.1, rec.Lng)
		assert.Equal(t, 51.55, rec.Lat)
		assert.Equal(t, "POINT(-0.1 51.55)", rec.Location)
		require.NotNil(t, rec.AddressLine1)
		assert.Equal(t, "10 Keats Grove", *rec.AddressLine1)
		require.NotNil(t, rec.Postcode)
		assert.Equal(t, "NW3 2RR", *rec.Postcode)
		require.NotNil(t, rec.ListDate)
		assert.Equal(t, "1968-03-01", *rec.ListDate)
		require.NotNil(t, rec.DocumentationURL)
		assert.Equal(t, "London", rec.Town)
		assert.Equal(t, DataSourceHistoricEngland, rec.DataSource)
	})

	t.Run("flat record with string coordinates", func(t *testing.T) {
		f := rawFeature(t, `{
			"ListEntry": "1113261",
			"Name": "Hampstead Parish Church",
			"Grade": "1",
			"Longitude": "-0.178",
			"Latitude": "51.556"
		}`)

		rec, err := TransformListedBuilding(f, targets, logger)
		require.NoError(t, err)

		assert.Equal(t, "1113261", rec.ListEntryNumber)
		assert.Equal(t, GradeI, rec.Grade)
		assert.Equal(t, -0.178, rec.Lng)
		assert.Equal(t, 51.556, rec.Lat)
	})

	t.Run("borough omitted", func(t *testing.T) {
		f := rawFeature(t, `{
			"ListEntry": "1000001",
			"Name": "Unattributed Terrace",
			"Longitude": -0.2,
			"Latitude": 51.6
		}`)

		rec, err := TransformListedBuilding(f, targets, logger)
		require.NoError(t, err)
		assert.Empty(t, rec.Borough)
	})

	t.Run("outside bounding box", func(t *testing.T) {
		f := rawFeature(t, `{
			"ListEntry": "1000002",
			"Name": "Somewhere Else",
			"Longitude": 10.0,
			"Latitude": 40.0
		}`)

		_, err := TransformListedBuilding(f, targets, logger)
		var skip *SkipError
		require.ErrorAs(t, err, &skip)
		assert.Contains(t, skip.Reason, "bounding box")
	})

	t.Run("non-target borough", func(t *testing.T) {
		f := rawFeature(t, `{
			"ListEntry": "1000003",
			"Name": "Hackney Town Hall",
			"LocalAuthority": "Hackney",
			"Longitude": -0.1,
			"Latitude": 51.55
		}`)

		_, err := TransformListedBuilding(f, targets, logger)
		var skip *SkipError
		require.ErrorAs(t, err, &skip)
		assert.Contains(t, skip.Reason, "not a target borough")
	})

	t.Run("no coordinates", func(t *testing.T) {
		f := rawFeature(t, `{"ListEntry": "1000004", "Name": "No Fix"}`)

		_, err := TransformListedBuilding(f, targets, logger)
		var skip *SkipError
		require.ErrorAs(t, err, &skip)
		assert.Contains(t, skip.Reason, "no coordinates")
	})

	t.Run("missing list entry number", func(t *testing.T) {
		f := rawFeature(t, `{"Name": "Nameless", "Longitude": -0.1, "Latitude": 51.55}`)

		_, err := TransformListedBuilding(f, targets, logger)
		var skip *SkipError
		require.ErrorAs(t, err, &skip)
		assert.Contains(t, skip.Reason, "list entry number")
	})

	t.Run("defaults", func(t *testing.T) {
		f := rawFeature(t, `{"ListEntry": "1000005", "Longitude": -0.1, "Latitude": 51.55}`)

		rec, err := TransformListedBuilding(f, targets, logger)
		require.NoError(t, err)
		assert.Equal(t, "Unknown", rec.Name)
		assert.Equal(t, GradeII, rec.Grade)
		assert.Equal(t, "London", rec.Town)
		assert.Nil(t, rec.AddressLine1)
		assert.Nil(t, rec.Postcode)
		assert.Nil(t, rec.ListDate)
	})

	t.Run("point geometry preferred over coordinate properties", func(t *testing.T) {
		f := rawFeature(t, `{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-0.15, 51.52]},
			"properties": {"ListEntry": "1000006", "Longitude": -0.29, "Latitude": 51.64}
		}`)

		rec, err := TransformListedBuilding(f, targets, logger)
		require.NoError(t, err)
		assert.Equal(t, -0.15, rec.Lng)
		assert.Equal(t, 51.52, rec.Lat)
	})
}
