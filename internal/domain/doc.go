// Package domain models UK planning and heritage records for NW London.
//
// # Data Sources
//
// Listed buildings come from the Historic England "National Heritage List"
// exports (https://historicengland.org.uk/listing/the-list/data-downloads/),
// either as GeoJSON Features with Point geometries or as flat JSON records.
// Conservation areas come from the London Datastore and borough open-data
// portals (Camden, Barnet) as GeoJSON Features with Polygon or MultiPolygon
// boundaries.
//
// # Source Data Conventions
//
// Property naming is not standardised across sources. Each canonical field is
// read from an ordered list of candidate keys, first present non-empty value
// wins:
//
//	coordinates: Longitude/longitude/Easting and Latitude/latitude/Northing
//	borough:     LocalAuthority, District, Borough (buildings)
//	             borough, Borough, LOCAL_AUTHORITY, LocalAuthority (areas)
//	name:        CA_NAME, name, Name, NAME, conservation_area_name (areas)
//
// Borough values frequently carry prefixes ("LB Camden") or formal names
// ("City of Westminster"); a static rename map plus case-insensitive substring
// matching canonicalises them to the six target boroughs: Camden, Barnet,
// Westminster, Haringey, Brent, Islington.
//
// Listing grades are the UK heritage designation tiers: I (highest), II*
// (intermediate), II (standard). Sources encode them as "I"/"II*"/"II" or as
// "1"/"2*"/"2"; anything unrecognised defaults to II, by far the most common
// grade.
//
// Dates appear in six formats, tried in order: 2006-01-02, 02/01/2006,
// 02-01-2006, 2006/01/02, "2 January 2006", "January 2, 2006".
//
// # Article 4 Directions
//
// An Article 4 Direction withdraws permitted development rights within a
// conservation area. Sources flag it inconsistently: boolean properties
// (has_article_4, ARTICLE_4, article4) or just a mention of "article 4" in
// free-text fields. Restriction lists arrive either as JSON arrays or as
// comma-separated strings.
//
// # Rejection Semantics
//
// A record that fails a domain filter (outside the NW-London bounding box,
// borough not targeted, invalid or missing geometry) is not an error: the
// transform returns a *SkipError and the pipeline counts it as skipped.
// Anything else that goes wrong during a transform is absorbed as a transform
// failure, logged, and never aborts the run.
package domain
