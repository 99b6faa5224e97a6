package output

import (
	"context"
	"io"

	"github.com/ccollicutt/logcat/pkg/model"
)

// Formatter renders a report in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds run details such as files read and elapsed time.
	Verbose bool

	// Quiet renders statistics only, without entries.
	Quiet bool

	// NoColor disables ANSI colors in text output.
	NoColor bool
}

// EntryWriter writes entries one at a time as they are produced.
// Close must be called once to finish the output; it does not close the
// underlying writer.
type EntryWriter interface {
	Write(e *model.Entry) error
	Close() error
}
