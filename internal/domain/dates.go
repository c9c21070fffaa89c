package domain

import (
	"log/slog"
	"strings"
	"time"
)

// dateLayouts are the formats seen across the source datasets, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"2 January 2006",
	"January 2, 2006",
}

// ParseDate normalises a source date string to ISO form (YYYY-MM-DD).
// Returns false for empty input or when no layout matches.
func ParseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// parseDateField reads a date from the first matching property key. Returns
// nil when absent; logs a warning when present but unparseable.
func parseDateField(props Properties, logger *slog.Logger, keys ...string) *string {
	raw, ok := props.FirstString(keys...)
	if !ok {
		return nil
	}
	iso, ok := ParseDate(raw)
	if !ok {
		logger.Warn("could not parse date", "value", raw)
		return nil
	}
	return &iso
}
