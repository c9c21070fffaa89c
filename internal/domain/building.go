package domain

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/nwheritage/heritage-data-etl/internal/geometry"
)

// DataSourceHistoricEngland tags listed-building records with their origin.
const DataSourceHistoricEngland = "historic_england"

// TransformListedBuilding maps one raw Historic England record to the
// canonical schema. The record may be a GeoJSON Feature or a flat property
// dictionary. Records outside the target bounding box, in a non-target
// borough, or without usable coordinates or a list entry number come back as
// a *SkipError.
func TransformListedBuilding(f RawFeature, targets TargetConfig, logger *slog.Logger) (ListedBuilding, error) {
	props := f.Properties

	lng, lat, ok := extractCoordinates(f)
	if !ok {
		logger.Warn("no coordinates for record", "name", props.StringOr("Unknown", "Name", "name"))
		return ListedBuilding{}, skipf("no coordinates")
	}

	if !targets.Bounds.Contains(orb.Point{lng, lat}) {
		return ListedBuilding{}, skipf("point (%g, %g) outside target bounding box", lng, lat)
	}

	// Borough is optional for listed buildings: many HE exports omit the
	// local authority entirely. Present but non-target is a rejection.
	borough := ""
	if raw, ok := props.FirstString("LocalAuthority", "District", "Borough"); ok {
		canonical, ok := targets.CanonicalBorough(raw)
		if !ok {
			return ListedBuilding{}, skipf("borough %q is not a target borough", raw)
		}
		borough = canonical
	}

	entry, ok := props.FirstString("ListEntry", "list_entry", "ListEntryNumber")
	if !ok {
		return ListedBuilding{}, skipf("missing list entry number")
	}

	grade := NormalizeGrade(props.StringOr("", "Grade", "grade"))

	return ListedBuilding{
		ListEntryNumber:  entry,
		Name:             props.StringOr("Unknown", "Name", "name"),
		Grade:            grade,
		AddressLine1:     optionalString(props, "Location", "Address", "address"),
		AddressLine2:     optionalString(props, "Address2"),
		Town:             props.StringOr("London", "Town", "PostTown"),
		Postcode:         optionalString(props, "Postcode", "postcode"),
		Borough:          borough,
		Location:         wkt.MarshalString(orb.Point{lng, lat}),
		Lng:              lng,
		Lat:              lat,
		ListDate:         parseDateField(props, logger, "ListDate", "DateListed"),
		AmendedDate:      parseDateField(props, logger, "AmendDate", "DateAmended"),
		LegacyUID:        optionalString(props, "LegacyUID", "legacy_uid"),
		DocumentationURL: optionalString(props, "Hyperlink", "URL"),
		DataSource:       DataSourceHistoricEngland,
	}, nil
}

// extractCoordinates prefers a Point geometry's coordinates and falls back to
// the named coordinate property variants.
func extractCoordinates(f RawFeature) (lng, lat float64, ok bool) {
	if g, err := geometry.Decode(f.Geometry); err == nil {
		if pt, isPoint := g.(orb.Point); isPoint {
			return pt[0], pt[1], true
		}
	}

	lng, lngOK := f.Properties.FirstFloat("Longitude", "longitude", "Easting")
	lat, latOK := f.Properties.FirstFloat("Latitude", "latitude", "Northing")
	if !lngOK || !latOK {
		return 0, 0, false
	}
	return lng, lat, true
}

func optionalString(props Properties, keys ...string) *string {
	if s, ok := props.FirstString(keys...); ok {
		return &s
	}
	return nil
}
