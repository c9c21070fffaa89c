package domain

import (
	"strings"

	"github.com/paulmach/orb"
)

// TargetConfig is the static target-area configuration injected into the
// transformers. Keeping it a value keeps the transforms pure and testable.
type TargetConfig struct {
	// Boroughs are the canonical names of the target boroughs. Matching is
	// case-insensitive and substring-based, so "LB Camden" matches "Camden".
	Boroughs []string

	// BoroughRenames maps source spellings to canonical names before the
	// target check.
	BoroughRenames map[string]string

	// PostcodePrefixes are the outward-code prefixes of the target area.
	PostcodePrefixes []string

	// Bounds is the bounding box a listed building's point must fall inside.
	Bounds orb.Bound
}

// DefaultTargets returns the NW-London target configuration: six boroughs and
// a tight bounding box over the NW/N postcode belt.
func DefaultTargets() TargetConfig {
	return TargetConfig{
		Boroughs: []string{"Camden", "Barnet", "Westminster", "Haringey", "Brent", "Islington"},
		BoroughRenames: map[string]string{
			"LB Camden":           "Camden",
			"LB Barnet":           "Barnet",
			"City of Westminster": "Westminster",
			"LB Haringey":         "Haringey",
			"LB Brent":            "Brent",
			"LB Islington":        "Islington",
		},
		PostcodePrefixes: []string{
			"NW1", "NW2", "NW3", "NW4", "NW5", "NW6", "NW8", "NW9", "NW10", "NW11",
			"N1", "N2", "N3", "N4", "N5", "N6", "N7", "N8", "N10", "N11", "N12",
			"W1", "W2", "W9", "W10", "W11",
		},
		Bounds: orb.Bound{
			Min: orb.Point{-0.30, 51.50},
			Max: orb.Point{0.00, 51.65},
		},
	}
}

// CanonicalBorough resolves a source borough value to its canonical
// title-cased name. The rename map is tried first, then a case-insensitive
// substring match against the target list. The second return is false when
// the value matches no target borough.
func (c TargetConfig) CanonicalBorough(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if renamed, ok := c.BoroughRenames[raw]; ok {
		raw = renamed
	}
	lower := strings.ToLower(raw)
	for _, target := range c.Boroughs {
		if strings.Contains(lower, strings.ToLower(target)) {
			return target, true
		}
	}
	return "", false
}

// IsTargetBorough reports whether the value matches a target borough.
func (c TargetConfig) IsTargetBorough(raw string) bool {
	_, ok := c.CanonicalBorough(raw)
	return ok
}

// IsTargetPostcode reports whether a postcode's outward code starts with one
// of the target prefixes.
func (c TargetConfig) IsTargetPostcode(postcode string) bool {
	postcode = strings.ToUpper(strings.TrimSpace(postcode))
	if postcode == "" {
		return false
	}
	outward := strings.Fields(postcode)[0]
	if len(outward) > 3 {
		outward = outward[:3]
	}
	for _, prefix := range c.PostcodePrefixes {
		if strings.HasPrefix(outward, prefix) {
			return true
		}
	}
	return false
}
