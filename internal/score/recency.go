package score

import (
	"math"
	"strings"
	"time"
)

// recencyBands maps a maximum age in days to a confidence multiplier
var recencyBands = []struct {
	maxDays int
	weight  float64
}{
	{30, 1.5},
	{90, 1.3},
	{180, 1.2},
	{365, 1.1},
}

// timestampLayouts are tried in order; layouts without a zone are read as UTC
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a document timestamp leniently
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AgeDays returns whole days elapsed between t and now
func AgeDays(t, now time.Time) int {
	return int(math.Floor(now.Sub(t).Hours() / 24))
}

// RecencyWeight returns the multiplier for a document last updated at raw.
// Missing or unparseable timestamps weigh 1.0.
func RecencyWeight(raw string, now time.Time) float64 {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return 1.0
	}
	return WeightForAge(AgeDays(t, now))
}

// WeightForAge maps an age in days to its multiplier
func WeightForAge(days int) float64 {
	for _, band := range recencyBands {
		if days <= band.maxDays {
			return band.weight
		}
	}
	return 1.0
}

// WeightedConfidence applies a recency multiplier, capped at 1.0
func WeightedConfidence(raw, weight float64) float64 {
	return math.Min(raw*weight, 1.0)
}
