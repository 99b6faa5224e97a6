// Package parser turns raw log lines into entries and streams them from files.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ccollicutt/logcat/pkg/model"
)

// Strategy parses one non-empty, trimmed line under a single grammar. It
// returns an error when the line does not fit the grammar.
type Strategy func(line string, lineNumber int) (*model.Entry, error)

// errNoMatch is returned by strategies whose grammar rejected the line.
var errNoMatch = errors.New("line does not match format grammar")

var strategies = map[model.Format]Strategy{
	model.FormatJSON:           parseJSON,
	model.FormatApacheCombined: parseApacheCombined,
	model.FormatApacheCommon:   parseApacheCommon,
	model.FormatNginxError:     parseNginxError,
	model.FormatPlainText:      parsePlainTextStrategy,
}

// StrategyFor returns the strategy for a format. Unknown formats, including
// FormatAuto, get the plain text strategy.
func StrategyFor(format model.Format) Strategy {
	if s, ok := strategies[format]; ok {
		return s
	}
	return parsePlainTextStrategy
}

// Parse parses a line under the given format. It returns nil for lines that
// are empty after trimming. A line the format's grammar rejects is parsed as
// plain text and marked Degraded; Parse never fails.
func Parse(line string, lineNumber int, format model.Format) *model.Entry {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	entry, err := run(StrategyFor(format), line, lineNumber)
	if err != nil || entry == nil {
		entry = parsePlainText(line, lineNumber)
		entry.Degraded = format != model.FormatPlainText
	}
	return entry
}

// run calls s, turning a panic inside a grammar into an ordinary failure.
func run(s Strategy, line string, lineNumber int) (entry *model.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entry, err = nil, fmt.Errorf("parser panic: %v", r)
		}
	}()
	return s(line, lineNumber)
}

func parsePlainTextStrategy(line string, lineNumber int) (*model.Entry, error) {
	return parsePlainText(line, lineNumber), nil
}
