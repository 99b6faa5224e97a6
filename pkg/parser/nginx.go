package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logcat/pkg/model"
)

const nginxTimeLayout = "2006/01/02 15:04:05"

var (
	nginxErrorRe  = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}) \[(\w+)\] (\d+)#(\d+): (.+)$`)
	nginxConnIDRe = regexp.MustCompile(`^\*(\d+) `)
)

var nginxLevels = map[string]model.Level{
	"debug":  model.LevelDebug,
	"info":   model.LevelInfo,
	"notice": model.LevelInfo,
	"warn":   model.LevelWarn,
	"error":  model.LevelError,
	"crit":   model.LevelFatal,
	"alert":  model.LevelFatal,
	"emerg":  model.LevelFatal,
}

// parseNginxError handles "YYYY/MM/DD HH:MM:SS [level] pid#tid: message".
func parseNginxError(line string, lineNumber int) (*model.Entry, error) {
	m := nginxErrorRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errNoMatch
	}

	ts, err := time.Parse(nginxTimeLayout, m[1])
	if err != nil {
		return nil, fmt.Errorf("parsing nginx time %q: %w", m[1], err)
	}
	pid, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("parsing pid %q: %w", m[3], err)
	}
	tid, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, fmt.Errorf("parsing tid %q: %w", m[4], err)
	}

	level, ok := nginxLevels[strings.ToLower(m[2])]
	if !ok {
		level = model.LevelInfo
	}

	message := strings.TrimSpace(m[5])
	entry := model.NewEntry(ts, level, message, lineNumber, line)
	entry.Source = fmt.Sprintf("nginx:%d", pid)
	entry.StructuredFields = map[string]any{
		"pid": pid,
		"tid": tid,
	}
	if c := nginxConnIDRe.FindStringSubmatch(message); c != nil {
		if conn, err := strconv.Atoi(c[1]); err == nil {
			entry.StructuredFields["connection"] = conn
		}
	}
	return entry, nil
}
