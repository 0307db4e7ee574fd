// Package timeutil normalizes submitted timestamps into the storage
// timezone and derives the formatted values persisted with each row.
package timeutil

import (
	"fmt"
	"log/slog"
	"time"
)

// StorageLayout is the wall-clock form every persisted timestamp uses.
const StorageLayout = "2006-01-02 15:04:05"

// acceptedLayouts are the input forms submissions may carry. Layouts
// without an offset are interpreted as storage-zone wall clock.
var acceptedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	StorageLayout,
}

// Normalizer parses submitted timestamps and renders them in a fixed
// storage timezone, independent of the server's local zone.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer loads the IANA zone all persisted timestamps are
// rendered in.
func NewNormalizer(zone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load storage timezone %q: %w", zone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Parse accepts any of the supported input layouts. Offset-less forms
// are parsed in the storage zone so they compare correctly against
// offset-carrying ones.
func (n *Normalizer) Parse(ts string) (time.Time, error) {
	for _, layout := range acceptedLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, ts); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, ts, n.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", ts)
}

// ToStorageZone renders a timestamp as storage-zone wall clock,
// truncated to whole seconds. Unparseable input is returned unchanged;
// callers validate timestamps before persisting, so this only happens
// on paths that tolerate raw values.
func (n *Normalizer) ToStorageZone(ts string) string {
	t, err := n.Parse(ts)
	if err != nil {
		slog.Warn("failed to normalize timestamp", "value", ts, "error", err)
		return ts
	}
	return t.In(n.loc).Format(StorageLayout)
}

// ExtractDate returns the date part of a storage-layout timestamp.
func ExtractDate(storageTS string) string {
	if len(storageTS) < len("2006-01-02") {
		return storageTS
	}
	return storageTS[:len("2006-01-02")]
}

// FormatDuration renders the span between two instants as HH:MM:00,
// minutes floored. Hours are not wrapped at 24.
func FormatDuration(start, end time.Time) string {
	minutes := int(end.Sub(start).Minutes())
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}
