package domain

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/nwheritage/heritage-data-etl/internal/geometry"
)

// DataSourceLondonDatastore is the default origin tag for conservation areas;
// sources may override it through a data_source property.
const DataSourceLondonDatastore = "london_datastore"

// UnknownConservationArea is the fallback name for unnamed boundaries.
const UnknownConservationArea = "Unknown Conservation Area"

// TransformConservationArea maps one GeoJSON conservation-area feature to the
// canonical schema. The boundary geometry is validated and repaired first and
// always comes out a MultiPolygon; a feature with no geometry, an unfixable
// geometry, or a non-target borough comes back as a *SkipError.
func TransformConservationArea(f RawFeature, targets TargetConfig, logger *slog.Logger) (ConservationArea, error) {
	props := f.Properties
	name := props.StringOr(UnknownConservationArea, "CA_NAME", "name", "Name", "NAME", "conservation_area_name")

	if len(f.Geometry) == 0 {
		logger.Warn("no geometry for conservation area", "name", name)
		return ConservationArea{}, skipf("missing geometry")
	}

	result, err := geometry.Validate(f.Geometry)
	if err != nil {
		if errors.Is(err, geometry.ErrEmptyGeometry) {
			logger.Warn("empty geometry after repair", "name", name)
		} else {
			logger.Error("geometry validation failed", "name", name, "error", err)
		}
		return ConservationArea{}, skipf("invalid geometry: %v", err)
	}
	if result.Repaired {
		logger.Warn("repaired invalid boundary geometry", "name", name)
	}

	boundary, ok := result.Geometry.(orb.MultiPolygon)
	if !ok {
		logger.Warn("unexpected geometry type", "name", name, "type", result.Geometry.GeoJSONType())
		return ConservationArea{}, skipf("unexpected geometry type %q", result.Geometry.GeoJSONType())
	}

	rawBorough := props.StringOr("", "borough", "Borough", "LOCAL_AUTHORITY", "LocalAuthority")
	borough, ok := targets.CanonicalBorough(rawBorough)
	if !ok {
		return ConservationArea{}, skipf("borough %q is not a target borough", rawBorough)
	}

	var areaHectares *float64
	if area, ok := geometry.AreaHectares(boundary); ok {
		areaHectares = &area
	}

	hasArticle4 := props.FirstBool("has_article_4", "ARTICLE_4", "article4") ||
		props.Contains("article 4")

	var restrictions []string
	if hasArticle4 {
		restrictions = parseRestrictions(props)
	}

	return ConservationArea{
		Name:                  name,
		Reference:             optionalString(props, "CA_REF", "reference", "REF", "ca_id"),
		Borough:               borough,
		DesignationDate:       parseDateField(props, logger, "designation_date", "DATE_DESIGNATED"),
		BoundaryWKT:           wkt.MarshalString(boundary),
		AreaHectares:          areaHectares,
		Description:           optionalString(props, "description", "DESCRIPTION"),
		CharacterAppraisalURL: optionalString(props, "character_appraisal_url", "CA_URL"),
		ManagementPlanURL:     optionalString(props, "management_plan_url"),
		HasArticle4:           hasArticle4,
		Article4Restrictions:  restrictions,
		Article4Date:          parseDateField(props, logger, "article_4_date", "A4_DATE"),
		DataSource:            props.StringOr(DataSourceLondonDatastore, "data_source"),
	}, nil
}

// parseRestrictions reads Article 4 restrictions from either a list-valued or
// a comma-separated string-valued property, preserving order.
func parseRestrictions(props Properties) []string {
	raw, ok := props.First("article_4_restrictions", "A4_RESTRICTIONS")
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(renderString(item)); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
