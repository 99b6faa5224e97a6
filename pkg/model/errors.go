package model

import "errors"

// Errors surfaced to callers of the ingestion engine. They are always
// returned before the first entry is produced.
var (
	ErrNotFound          = errors.New("log file not found")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrUnsupportedFormat = errors.New("unsupported log format")
)
