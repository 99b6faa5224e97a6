package model

import (
	"fmt"
	"strings"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelTrace Level = "TRACE"
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// Levels returns all levels from least to most severe.
func Levels() []Level {
	return []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal}
}

// ParseLevel converts a level name to a Level, ignoring case.
// Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	l, err := ParseLevelStrict(s)
	if err != nil {
		return LevelInfo
	}
	return l
}

// ParseLevelStrict is like ParseLevel but rejects unknown names.
func ParseLevelStrict(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return true
	}
	return false
}

// IsError reports whether the level is ERROR or FATAL.
func (l Level) IsError() bool {
	return l == LevelError || l == LevelFatal
}

func (l Level) String() string {
	return string(l)
}
