package analyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logcat/pkg/model"
)

// Statistics summarizes a collection of log entries.
type Statistics struct {
	// TotalEntries is the number of entries summarized.
	TotalEntries int

	// LevelCounts holds a count for every level that occurred at least once.
	LevelCounts map[model.Level]int

	// TimeRange spans the earliest and latest entry timestamps.
	TimeRange TimeRange

	// Sources lists the distinct non-empty entry sources, sorted.
	Sources []string

	// ErrorRate is the percentage of ERROR and FATAL entries, rounded to two
	// decimal places.
	ErrorRate float64

	// DegradedEntries counts entries that fell back to plain text parsing.
	DegradedEntries int
}

// TimeRange is a closed interval of timestamps. Both ends are nil when there
// were no entries.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// Duration returns End minus Start, or zero when the range is unset.
func (r TimeRange) Duration() time.Duration {
	if r.Start == nil || r.End == nil {
		return 0
	}
	return r.End.Sub(*r.Start)
}

// Summarize computes statistics over entries. An empty or nil slice yields
// zeroed statistics.
func Summarize(entries []*model.Entry) Statistics {
	agg := NewAggregator()
	for _, e := range entries {
		agg.Add(e)
	}
	return agg.Result()
}

// Aggregator accumulates statistics one entry at a time, for callers that
// never hold the full entry list in memory.
type Aggregator struct {
	total    int
	errors   int
	degraded int
	levels   map[model.Level]int
	sources  map[string]struct{}
	start    time.Time
	end      time.Time
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.Reset()
	return a
}

// Reset clears all accumulated state.
func (a *Aggregator) Reset() {
	a.total = 0
	a.errors = 0
	a.degraded = 0
	a.levels = make(map[model.Level]int)
	a.sources = make(map[string]struct{})
	a.start = time.Time{}
	a.end = time.Time{}
}

// Add records one entry. Nil entries are ignored.
func (a *Aggregator) Add(e *model.Entry) {
	if e == nil {
		return
	}

	if a.total == 0 || e.Timestamp.Before(a.start) {
		a.start = e.Timestamp
	}
	if a.total == 0 || e.Timestamp.After(a.end) {
		a.end = e.Timestamp
	}

	a.total++
	a.levels[e.Level]++
	if e.IsError() {
		a.errors++
	}
	if e.Degraded {
		a.degraded++
	}
	if e.Source != "" {
		a.sources[e.Source] = struct{}{}
	}
}

// Count returns the number of entries added so far.
func (a *Aggregator) Count() int {
	return a.total
}

// Result returns the statistics for everything added so far.
func (a *Aggregator) Result() Statistics {
	stats := Statistics{
		TotalEntries:    a.total,
		LevelCounts:     make(map[model.Level]int, len(a.levels)),
		Sources:         make([]string, 0, len(a.sources)),
		DegradedEntries: a.degraded,
	}

	for level, n := range a.levels {
		stats.LevelCounts[level] = n
	}
	for src := range a.sources {
		stats.Sources = append(stats.Sources, src)
	}
	slices.Sort(stats.Sources)

	if a.total > 0 {
		start, end := a.start, a.end
		stats.TimeRange = TimeRange{Start: &start, End: &end}
		stats.ErrorRate = roundRate(float64(a.errors) / float64(a.total) * 100)
	}

	return stats
}

// roundRate rounds to two decimals, halves away from zero.
func roundRate(r float64) float64 {
	return math.Round(r*100) / 100
}

// Summary returns a one-line description such as
// "12 total entries, 25% errors, spanning 1h0m0s".
func (s Statistics) Summary() string {
	if s.TotalEntries == 0 {
		return "No log entries"
	}

	parts := []string{fmt.Sprintf("%d total entries", s.TotalEntries)}
	if s.ErrorRate > 0 {
		parts = append(parts, strconv.FormatFloat(s.ErrorRate, 'f', -1, 64)+"% errors")
	}
	if s.TimeRange.Start != nil && s.TimeRange.End != nil {
		parts = append(parts, "spanning "+s.TimeRange.Duration().String())
	}
	return strings.Join(parts, ", ")
}

// ErrorCount returns the number of ERROR and FATAL entries.
func (s Statistics) ErrorCount() int {
	return s.LevelCounts[model.LevelError] + s.LevelCounts[model.LevelFatal]
}

type statisticsJSON struct {
	TotalEntries    int            `json:"total_entries"`
	LevelCounts     map[string]int `json:"level_counts"`
	TimeRange       timeRangeJSON  `json:"time_range"`
	Sources         []string       `json:"sources"`
	ErrorRate       float64        `json:"error_rate"`
	DegradedEntries int            `json:"degraded_entries"`
}

type timeRangeJSON struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// MarshalJSON renders level names as keys and never emits null for the
// level map or the source list.
func (s Statistics) MarshalJSON() ([]byte, error) {
	out := statisticsJSON{
		TotalEntries:    s.TotalEntries,
		LevelCounts:     make(map[string]int, len(s.LevelCounts)),
		Sources:         s.Sources,
		ErrorRate:       s.ErrorRate,
		DegradedEntries: s.DegradedEntries,
		TimeRange: timeRangeJSON{
			Start: formatTime(s.TimeRange.Start),
			End:   formatTime(s.TimeRange.End),
		},
	}
	for level, n := range s.LevelCounts {
		out.LevelCounts[level.String()] = n
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return json.Marshal(out)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}
