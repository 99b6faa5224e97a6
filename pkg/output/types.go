// Package output renders reports and streams entries in the supported output
// formats.
package output

import (
	"time"

	"github.com/ccollicutt/logcat/pkg/analyzer"
	"github.com/ccollicutt/logcat/pkg/model"
)

// UnknownFormat is reported as the detected format when nothing was read.
const UnknownFormat = "unknown"

// Report is the result of parsing or filtering log files.
type Report struct {
	// Entries holds the matching entries. Never nil.
	Entries []*model.Entry `json:"entries"`

	// Statistics summarizes Entries.
	Statistics analyzer.Statistics `json:"statistics"`

	// DetectedFormat is the format of the first file, or "unknown" when no
	// entries were read.
	DetectedFormat string `json:"detected_format"`

	// TotalLinesProcessed is the number of entries in the report.
	TotalLinesProcessed int `json:"total_lines_processed"`

	// Metadata provides context about the run. It is not part of the JSON
	// document.
	Metadata Metadata `json:"-"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// Files lists the log files that were read.
	Files []string

	// LinesRead is the number of physical lines read, including blank lines
	// and lines rejected by the filter.
	LinesRead int

	// Truncated is set when reading stopped at the entry limit.
	Truncated bool

	// AnalyzedAt is when the analysis finished.
	AnalyzedAt time.Time

	// Duration is how long the analysis took.
	Duration time.Duration
}

// NewReport creates a Report from analysis results.
func NewReport(result *analyzer.AnalysisResult) *Report {
	report := &Report{
		Entries:             result.Entries,
		Statistics:          result.Statistics,
		DetectedFormat:      UnknownFormat,
		TotalLinesProcessed: result.Statistics.TotalEntries,
		Metadata: Metadata{
			Files:      result.Metadata.Files,
			LinesRead:  result.Metadata.LinesProcessed,
			Truncated:  result.Metadata.Truncated,
			AnalyzedAt: result.Metadata.EndTime,
			Duration:   result.Metadata.EndTime.Sub(result.Metadata.StartTime),
		},
	}

	if report.Entries == nil {
		report.Entries = []*model.Entry{}
	}
	if result.Statistics.TotalEntries > 0 {
		report.DetectedFormat = result.Metadata.DetectedFormat().String()
	}

	return report
}

// HasErrors returns true if any ERROR or FATAL entries were read.
func (r *Report) HasErrors() bool {
	return r.Statistics.ErrorCount() > 0
}
