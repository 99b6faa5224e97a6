package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampExtractor pulls a leading timestamp out of a log line.
type TimestampExtractor struct {
	pattern *regexp.Regexp
	layout  string
}

// NewTimestampExtractor creates a new timestamp extractor. The first capture
// group of pattern must hold the timestamp text.
func NewTimestampExtractor(pattern *regexp.Regexp, layout string) *TimestampExtractor {
	return &TimestampExtractor{
		pattern: pattern,
		layout:  layout,
	}
}

// Extract parses the timestamp and returns it with the rest of the line
// (whitespace trimmed). Timestamps without a zone are read as UTC.
func (e *TimestampExtractor) Extract(line string) (time.Time, string, error) {
	loc := e.pattern.FindStringSubmatchIndex(line)
	if loc == nil || len(loc) < 4 || loc[2] < 0 {
		return time.Time{}, "", fmt.Errorf("timestamp pattern did not match")
	}

	tsStr := line[loc[2]:loc[3]]
	ts, err := time.Parse(e.layout, tsStr)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("parsing timestamp %q: %w", tsStr, err)
	}

	return ts, strings.TrimSpace(line[loc[1]:]), nil
}

// plainTextExtractors are tried in order at the start of plain text lines.
var plainTextExtractors = []*TimestampExtractor{
	NewTimestampExtractor(regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`), "2006-01-02 15:04:05"),
	NewTimestampExtractor(regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`), "2006-01-02T15:04:05"),
	NewTimestampExtractor(regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]`), "2006-01-02 15:04:05"),
}

// valueLayouts are tried, in order, for timestamps found in JSON fields.
var valueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2/Jan/2006:15:04:05",
}

// epochMillisThreshold separates seconds from milliseconds in numeric
// timestamps (1e12 seconds is far beyond year 30000).
const epochMillisThreshold = 1e12

// parseTimestampValue interprets a decoded JSON value as a point in time.
// Strings are tried against valueLayouts; numbers of any decoded type are
// Unix epoch seconds or milliseconds.
func parseTimestampValue(v any) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range valueLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		// Numeric strings such as "1705315800".
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochTime(f)
		}
		return time.Time{}, false
	case float64:
		return epochTime(val)
	case int64:
		return epochTime(float64(val))
	case uint64:
		return epochTime(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return epochTime(f)
		}
	}
	return time.Time{}, false
}

func epochTime(f float64) (time.Time, bool) {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, false
	}
	if f >= epochMillisThreshold {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
