// Package model defines the records produced by the log ingestion engine.
package model

import (
	"encoding/json"
	"time"
)

// DisplayLayout renders timestamps for people, truncated to milliseconds.
const DisplayLayout = "2006-01-02 15:04:05.000"

// Entry is one parsed log line. Entries are not modified after the parser
// returns them.
type Entry struct {
	// Timestamp is when the line was logged, or the parse time if the line
	// carried no recognizable timestamp.
	Timestamp time.Time

	Level   Level
	Message string

	// Source is an optional origin tag (IP address, process, logger name).
	Source string

	// LineNumber is the 1-based position of the line in its file.
	LineNumber int

	// RawText is the line as read, with surrounding whitespace trimmed.
	RawText string

	// StructuredFields holds format-specific data. Empty for plain text.
	StructuredFields map[string]any

	StackTrace string

	// File is the path the entry was read from.
	File string

	// Degraded is set when the active format's grammar rejected the line
	// and it was parsed as plain text instead.
	Degraded bool
}

// NewEntry returns an entry with the invariants applied: a known level,
// a non-negative line number and a non-nil field map.
func NewEntry(ts time.Time, level Level, message string, lineNumber int, raw string) *Entry {
	if !level.Valid() {
		level = LevelInfo
	}
	if lineNumber < 0 {
		lineNumber = 0
	}
	return &Entry{
		Timestamp:        ts,
		Level:            level,
		Message:          message,
		LineNumber:       lineNumber,
		RawText:          raw,
		StructuredFields: map[string]any{},
	}
}

// IsError reports whether the entry is at ERROR or FATAL level.
func (e *Entry) IsError() bool {
	return e.Level.IsError()
}

// HasStackTrace reports whether a stack trace was captured.
func (e *Entry) HasStackTrace() bool {
	return e.StackTrace != ""
}

// DisplayTime returns the timestamp formatted with millisecond precision.
func (e *Entry) DisplayTime() string {
	return e.Timestamp.Format(DisplayLayout)
}

// Record is the serialized shape of an Entry.
type Record struct {
	Timestamp        string         `json:"timestamp" msgpack:"timestamp"`
	Level            string         `json:"level" msgpack:"level"`
	Message          string         `json:"message" msgpack:"message"`
	Source           *string        `json:"source" msgpack:"source"`
	LineNumber       int            `json:"line_number" msgpack:"line_number"`
	RawText          string         `json:"raw_text" msgpack:"raw_text"`
	StructuredFields map[string]any `json:"structured_fields" msgpack:"structured_fields"`
	StackTrace       *string        `json:"stack_trace" msgpack:"stack_trace"`
	IsError          bool           `json:"is_error" msgpack:"is_error"`
	DisplayTime      string         `json:"display_time" msgpack:"display_time"`
	File             string         `json:"file,omitempty" msgpack:"file,omitempty"`
}

// Record converts the entry to its serialized shape.
func (e *Entry) Record() Record {
	fields := e.StructuredFields
	if fields == nil {
		fields = map[string]any{}
	}
	return Record{
		Timestamp:        e.Timestamp.Format(time.RFC3339Nano),
		Level:            e.Level.String(),
		Message:          e.Message,
		Source:           optional(e.Source),
		LineNumber:       e.LineNumber,
		RawText:          e.RawText,
		StructuredFields: fields,
		StackTrace:       optional(e.StackTrace),
		IsError:          e.IsError(),
		DisplayTime:      e.DisplayTime(),
		File:             e.File,
	}
}

// MarshalJSON implements json.Marshaler.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Record())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
