package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Properties is the loosely-typed property bag carried by a raw feature.
// Values are whatever encoding/json produced: string, float64, bool, nil,
// []any or nested maps.
type Properties map[string]any

// RawFeature is one untyped record from a source, either a GeoJSON Feature
// (geometry + properties) or a flat property dictionary. Flat records have
// their top-level keys lifted into Properties during unmarshalling, so
// downstream code never needs to care which form it was.
type RawFeature struct {
	Properties Properties
	Geometry   json.RawMessage
}

// UnmarshalJSON accepts both GeoJSON Features and flat records.
func (f *RawFeature) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode feature: %w", err)
	}

	if raw, ok := fields["geometry"]; ok && !isJSONNull(raw) {
		f.Geometry = raw
	}

	if raw, ok := fields["properties"]; ok && !isJSONNull(raw) {
		var props Properties
		if err := json.Unmarshal(raw, &props); err != nil {
			return fmt.Errorf("decode feature properties: %w", err)
		}
		f.Properties = props
		return nil
	}

	// Flat record: every top-level field except the GeoJSON envelope keys
	// is a property.
	props := make(Properties, len(fields))
	for key, raw := range fields {
		if key == "type" || key == "geometry" {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		props[key] = v
	}
	f.Properties = props
	return nil
}

// First returns the first non-nil value among the candidate keys.
func (p Properties) First(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := p[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// FirstString probes the candidate keys in order and returns the first value
// that renders to a non-empty string. Numbers are rendered without a decimal
// point when integral, so a JSON 2 becomes "2".
func (p Properties) FirstString(keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := p[key]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(renderString(v)); s != "" {
			return s, true
		}
	}
	return "", false
}

// StringOr is FirstString with a default.
func (p Properties) StringOr(def string, keys ...string) string {
	if s, ok := p.FirstString(keys...); ok {
		return s
	}
	return def
}

// FirstFloat probes the candidate keys in order and returns the first value
// parseable as a float64. Sources are split between numeric and string-typed
// coordinate columns.
func (p Properties) FirstFloat(keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := p[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// FirstBool reports whether any candidate key holds an affirmative value:
// boolean true, a number other than zero, or one of "true"/"yes"/"y"/"1".
func (p Properties) FirstBool(keys ...string) bool {
	for _, key := range keys {
		v, ok := p[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			if t {
				return true
			}
		case float64:
			if t != 0 {
				return true
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "y", "1":
				return true
			}
		}
	}
	return false
}

// Contains reports whether the serialized property set contains the given
// substring, case-insensitively. Used for catch-all detection of flags that
// only appear in free-text fields.
func (p Properties) Contains(substr string) bool {
	data, err := json.Marshal(p)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), strings.ToLower(substr))
}

func renderString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
