package parser

import (
	"strings"
	"time"

	"github.com/ccollicutt/logcat/pkg/model"
)

// levelKeywords are scanned for in the upper-cased line. Groups are checked
// in this order and the first group with any hit wins, so a line containing
// both INFO and ERROR is INFO.
var levelKeywords = []struct {
	level    model.Level
	keywords []string
}{
	{model.LevelTrace, []string{"TRACE", "VERBOSE"}},
	{model.LevelDebug, []string{"DEBUG"}},
	{model.LevelInfo, []string{"INFO", "INFORMATION"}},
	{model.LevelWarn, []string{"WARN", "WARNING"}},
	{model.LevelError, []string{"ERROR", "ERR"}},
	{model.LevelFatal, []string{"FATAL", "CRITICAL", "CRIT", "EMERGENCY"}},
}

// parsePlainText accepts any line. A leading timestamp, if recognized, is
// split off from the message.
func parsePlainText(line string, lineNumber int) *model.Entry {
	ts := time.Now()
	message := line

	for _, ex := range plainTextExtractors {
		if t, rest, err := ex.Extract(line); err == nil {
			ts, message = t, rest
			break
		}
	}

	return model.NewEntry(ts, keywordLevel(line), message, lineNumber, line)
}

func keywordLevel(line string) model.Level {
	upper := strings.ToUpper(line)
	for _, group := range levelKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(upper, kw) {
				return group.level
			}
		}
	}
	return model.LevelInfo
}
