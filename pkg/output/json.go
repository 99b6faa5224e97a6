package output

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// JSONFormatter writes a report as an indented JSON document.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// jsonMetadata is the run information added to verbose documents.
type jsonMetadata struct {
	Files      []string  `json:"files"`
	LinesRead  int       `json:"lines_read"`
	Truncated  bool      `json:"truncated"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	DurationMS int64     `json:"duration_ms"`
}

// verboseReport is a Report with its metadata serialized alongside.
type verboseReport struct {
	*Report
	Metadata jsonMetadata `json:"metadata"`
}

// Format renders the report as JSON. Quiet writes the statistics object on
// its own; Verbose appends a "metadata" object to the report document.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	switch {
	case f.opts.Quiet:
		return encoder.Encode(report.Statistics)
	case f.opts.Verbose:
		files := report.Metadata.Files
		if files == nil {
			files = []string{}
		}
		return encoder.Encode(verboseReport{
			Report: report,
			Metadata: jsonMetadata{
				Files:      files,
				LinesRead:  report.Metadata.LinesRead,
				Truncated:  report.Metadata.Truncated,
				AnalyzedAt: report.Metadata.AnalyzedAt,
				DurationMS: report.Metadata.Duration.Milliseconds(),
			},
		})
	default:
		return encoder.Encode(report)
	}
}
