// Package geometry validates and repairs GeoJSON geometries ahead of storage.
//
// The storage schema only accepts Point locations and MultiPolygon
// boundaries, and PostGIS rejects geometries that are not simple-feature
// valid. Source boundary data routinely contains unclosed rings, duplicate
// vertices and self-intersecting ("bowtie") rings, so validation attempts a
// deterministic repair before giving up: rings are closed, runs of duplicate
// vertices collapsed, and self-intersecting rings noded at their crossing
// points and walked into separate valid parts. An empty result after repair
// is a rejection; callers never receive a zero-area geometry.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// metresPerDegree is the rough equirectangular scale used by the original
// dataset near 51.5°N. Stored area values must stay comparable across
// ingestion runs, so this deliberately stays a flat approximation rather than
// a geodesic calculation.
const metresPerDegree = 111319.9

var (
	// ErrMissingGeometry is returned for features with no geometry member.
	ErrMissingGeometry = errors.New("missing geometry")

	// ErrEmptyGeometry is returned when nothing valid remains after repair.
	ErrEmptyGeometry = errors.New("empty geometry after repair")
)

// Result is a validated geometry plus whether repair was needed to get there.
type Result struct {
	Geometry orb.Geometry
	Repaired bool
}

// Decode parses raw GeoJSON into an orb geometry.
func Decode(raw json.RawMessage) (orb.Geometry, error) {
	if len(raw) == 0 {
		return nil, ErrMissingGeometry
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	return g.Geometry(), nil
}

// Validate decodes a declared Point, Polygon or MultiPolygon geometry,
// repairs it if it is not simple-feature valid, and rejects it if it is empty
// after repair. Polygon inputs are promoted to single-part MultiPolygons.
// Validation of an already-valid geometry returns it with identical
// coordinates, so repair is idempotent.
func Validate(raw json.RawMessage) (Result, error) {
	g, err := Decode(raw)
	if err != nil {
		return Result{}, err
	}

	switch t := g.(type) {
	case orb.Point:
		if !finite(t) {
			return Result{}, fmt.Errorf("non-finite point coordinates (%v, %v)", t[0], t[1])
		}
		return Result{Geometry: t}, nil
	case orb.Polygon:
		return validateMultiPolygon(orb.MultiPolygon{t})
	case orb.MultiPolygon:
		return validateMultiPolygon(t)
	default:
		return Result{}, fmt.Errorf("unsupported geometry type %q", g.GeoJSONType())
	}
}

// AreaHectares converts a geometry's planar area from squared degrees to
// hectares using the flat metres-per-degree scale. Returns false when the
// computation does not produce a finite value.
func AreaHectares(g orb.Geometry) (float64, bool) {
	area := math.Abs(planar.Area(g)) * metresPerDegree * metresPerDegree / 10000
	if math.IsNaN(area) || math.IsInf(area, 0) {
		return 0, false
	}
	return area, true
}

func validateMultiPolygon(mp orb.MultiPolygon) (Result, error) {
	out := make(orb.MultiPolygon, 0, len(mp))
	repaired := false
	for _, poly := range mp {
		parts, fixed, err := repairPolygon(poly)
		if err != nil {
			return Result{}, err
		}
		repaired = repaired || fixed
		out = append(out, parts...)
	}
	if len(out) == 0 {
		return Result{}, ErrEmptyGeometry
	}
	return Result{Geometry: out, Repaired: repaired}, nil
}

// repairPolygon returns the valid polygon parts a single source polygon
// yields: one part when it is already valid, several when its outer ring had
// to be split, none when it is degenerate.
func repairPolygon(poly orb.Polygon) ([]orb.Polygon, bool, error) {
	if len(poly) == 0 {
		return nil, false, nil
	}

	outer, fixedOuter := cleanRing(poly[0])
	if outer == nil {
		// Too few distinct vertices to enclose anything.
		return nil, true, nil
	}

	holes, fixedHoles := cleanHoles(poly[1:])
	fixed := fixedOuter || fixedHoles

	if ringSimple(outer) {
		if ringArea(outer) == 0 {
			return nil, true, nil
		}
		part := append(orb.Polygon{outer}, holes...)
		return []orb.Polygon{part}, fixed, nil
	}

	// Self-intersecting outer ring: node it at crossing points, walk the
	// noded sequence into separate loops, and keep the ones with area.
	loops := splitLoops(nodeRing(outer))
	parts := make([]orb.Polygon, 0, len(loops))
	for _, loop := range loops {
		if ringArea(loop) == 0 || !ringSimple(loop) {
			continue
		}
		parts = append(parts, orb.Polygon{loop})
	}

	// Reattach each hole to the split part that contains it.
	for _, hole := range holes {
		for i := range parts {
			if planar.RingContains(parts[i][0], hole[0]) {
				parts[i] = append(parts[i], hole)
				break
			}
		}
	}

	return parts, true, nil
}

func cleanHoles(holes []orb.Ring) ([]orb.Ring, bool) {
	out := make([]orb.Ring, 0, len(holes))
	fixed := false
	for _, hole := range holes {
		cleaned, changed := cleanRing(hole)
		fixed = fixed || changed
		if cleaned == nil || !ringSimple(cleaned) || ringArea(cleaned) == 0 {
			fixed = true
			continue
		}
		out = append(out, cleaned)
	}
	return out, fixed
}

// cleanRing collapses consecutive duplicate vertices and closes the ring.
// Returns nil when fewer than three distinct vertices remain.
func cleanRing(ring orb.Ring) (orb.Ring, bool) {
	if len(ring) == 0 {
		return nil, true
	}

	changed := false
	out := make(orb.Ring, 0, len(ring))
	for _, pt := range ring {
		if len(out) > 0 && out[len(out)-1] == pt {
			changed = true
			continue
		}
		out = append(out, pt)
	}

	// Drop a closing vertex that survived dedup, then re-close explicitly.
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	} else {
		changed = true
	}
	if len(out) < 3 {
		return nil, true
	}
	out = append(out, out[0])

	if len(out) != len(ring) {
		changed = true
	}
	return out, changed
}

// ringSimple reports whether a closed ring has no self-intersections: no two
// non-adjacent segments cross or touch, and no vertex repeats.
func ringSimple(ring orb.Ring) bool {
	n := len(ring) - 1 // segment count; ring is closed
	if n < 3 {
		return false
	}

	seen := make(map[orb.Point]struct{}, n)
	for _, pt := range ring[:n] {
		if _, dup := seen[pt]; dup {
			return false
		}
		seen[pt] = struct{}{}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if adjacentSegments(i, j, n) {
				continue
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return false
			}
		}
	}
	return true
}

// nodeRing inserts the pairwise crossing points of a ring's segments into its
// vertex sequence, preserving traversal order.
func nodeRing(ring orb.Ring) []orb.Point {
	n := len(ring) - 1

	// crossings[i] holds the split points for segment i, keyed for ordering
	// by the parameter along the segment.
	type node struct {
		t  float64
		pt orb.Point
	}
	crossings := make([][]node, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if adjacentSegments(i, j, n) {
				continue
			}
			pt, ti, tj, ok := crossingPoint(ring[i], ring[i+1], ring[j], ring[j+1])
			if !ok {
				continue
			}
			crossings[i] = append(crossings[i], node{t: ti, pt: pt})
			crossings[j] = append(crossings[j], node{t: tj, pt: pt})
		}
	}

	out := make([]orb.Point, 0, len(ring)+4)
	for i := 0; i < n; i++ {
		out = append(out, ring[i])
		nodes := crossings[i]
		for k := 1; k < len(nodes); k++ { // insertion sort; crossings per segment are few
			for m := k; m > 0 && nodes[m].t < nodes[m-1].t; m-- {
				nodes[m], nodes[m-1] = nodes[m-1], nodes[m]
			}
		}
		for _, nd := range nodes {
			if out[len(out)-1] != nd.pt {
				out = append(out, nd.pt)
			}
		}
	}
	out = append(out, ring[0])
	return out
}

// splitLoops walks a noded vertex sequence and extracts a closed ring each
// time a vertex repeats. A bowtie yields its two lobes; a simple ring yields
// itself.
func splitLoops(vertices []orb.Point) []orb.Ring {
	var loops []orb.Ring
	stack := make([]orb.Point, 0, len(vertices))

	for _, v := range vertices {
		idx := -1
		for i, s := range stack {
			if s == v {
				idx = i
				break
			}
		}
		if idx < 0 {
			stack = append(stack, v)
			continue
		}
		loop := make(orb.Ring, 0, len(stack)-idx+1)
		loop = append(loop, stack[idx:]...)
		loop = append(loop, v)
		if len(loop) >= 4 {
			loops = append(loops, loop)
		}
		stack = stack[:idx+1]
	}
	return loops
}

func ringArea(ring orb.Ring) float64 {
	return math.Abs(planar.Area(ring))
}

// adjacentSegments reports whether segments i and j of an n-segment closed
// ring share an endpoint.
func adjacentSegments(i, j, n int) bool {
	return j == i+1 || (i == 0 && j == n-1)
}

// segmentsIntersect reports whether segments pq and rs cross or touch at a
// point interior to either segment. Shared endpoints between adjacent
// segments are filtered out by the caller.
func segmentsIntersect(p, q, r, s orb.Point) bool {
	d1 := cross(r, s, p)
	d2 := cross(r, s, q)
	d3 := cross(p, q, r)
	d4 := cross(p, q, s)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear touches.
	return (d1 == 0 && onSegment(r, s, p)) ||
		(d2 == 0 && onSegment(r, s, q)) ||
		(d3 == 0 && onSegment(p, q, r)) ||
		(d4 == 0 && onSegment(p, q, s))
}

// crossingPoint returns the proper intersection of segments pq and rs along
// with the parameters of the crossing on each segment. Collinear overlaps and
// endpoint touches are not treated as crossings.
func crossingPoint(p, q, r, s orb.Point) (orb.Point, float64, float64, bool) {
	d1 := cross(r, s, p)
	d2 := cross(r, s, q)
	d3 := cross(p, q, r)
	d4 := cross(p, q, s)

	proper := ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
	if !proper {
		return orb.Point{}, 0, 0, false
	}

	denom := (q[0]-p[0])*(s[1]-r[1]) - (q[1]-p[1])*(s[0]-r[0])
	if denom == 0 {
		return orb.Point{}, 0, 0, false
	}
	ti := ((r[0]-p[0])*(s[1]-r[1]) - (r[1]-p[1])*(s[0]-r[0])) / denom
	pt := orb.Point{p[0] + ti*(q[0]-p[0]), p[1] + ti*(q[1]-p[1])}

	var tj float64
	if dx, dy := s[0]-r[0], s[1]-r[1]; math.Abs(dx) >= math.Abs(dy) {
		tj = (pt[0] - r[0]) / dx
	} else {
		tj = (pt[1] - r[1]) / dy
	}
	return pt, ti, tj, true
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// onSegment reports whether collinear point c lies within segment ab,
// excluding its endpoints.
func onSegment(a, b, c orb.Point) bool {
	if c == a || c == b {
		return false
	}
	return math.Min(a[0], b[0]) <= c[0] && c[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= c[1] && c[1] <= math.Max(a[1], b[1])
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
