package parser

import (
	"context"

	"github.com/ccollicutt/logcat/pkg/model"
)

// LogSource provides an iterator over parsed log entries.
// Implementations must be safe for sequential access (not concurrent).
type LogSource interface {
	// Next returns the next entry.
	// Returns io.EOF when no more entries are available.
	Next(ctx context.Context) (*model.Entry, error)

	// Close releases any resources held by the source. It is safe to call
	// more than once.
	Close() error
}
