package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logcat/pkg/model"
)

// apacheTimeLayout is the bracketed access log time without its zone. The
// day may be one or two digits.
const apacheTimeLayout = "2/Jan/2006:15:04:05"

var (
	// ip ident user [time] "method path protocol" status size "referer" "agent"
	apacheCombinedRe = regexp.MustCompile(`^(\S+) \S+ \S+ \[(.+?)\] "([A-Z]+) (\S+) (\S+)" (\d+) (\d+) "(.+?)" "(.+?)"`)
	apacheCommonRe   = regexp.MustCompile(`^(\S+) \S+ \S+ \[(.+?)\] "([A-Z]+) (\S+) (\S+)" (\d+) (\d+)`)
)

func parseApacheCombined(line string, lineNumber int) (*model.Entry, error) {
	m := apacheCombinedRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errNoMatch
	}

	entry, err := apacheEntry(line, lineNumber, m[1:8])
	if err != nil {
		return nil, err
	}
	entry.StructuredFields["referer"] = m[8]
	entry.StructuredFields["user_agent"] = m[9]
	return entry, nil
}

func parseApacheCommon(line string, lineNumber int) (*model.Entry, error) {
	m := apacheCommonRe.FindStringSubmatch(line)
	if m == nil {
		return nil, errNoMatch
	}
	return apacheEntry(line, lineNumber, m[1:8])
}

// apacheEntry builds an entry from the fields shared by both access log
// formats: ip, time, method, path, protocol, status, size.
func apacheEntry(line string, lineNumber int, f []string) (*model.Entry, error) {
	ip, rawTime, method, path, protocol := f[0], f[1], f[2], f[3], f[4]

	// The zone is ignored; "10/Oct/2000:13:55:36 -0700" parses as 13:55:36 UTC.
	timePart, _, _ := strings.Cut(rawTime, " ")
	ts, err := time.Parse(apacheTimeLayout, timePart)
	if err != nil {
		return nil, fmt.Errorf("parsing access log time %q: %w", rawTime, err)
	}

	status, err := strconv.Atoi(f[5])
	if err != nil {
		return nil, fmt.Errorf("parsing status %q: %w", f[5], err)
	}
	size, err := strconv.ParseInt(f[6], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing size %q: %w", f[6], err)
	}

	message := fmt.Sprintf("%s %s - %d", method, path, status)
	entry := model.NewEntry(ts, statusLevel(status), message, lineNumber, line)
	entry.Source = ip
	entry.StructuredFields = map[string]any{
		"ip":       ip,
		"method":   method,
		"path":     path,
		"protocol": protocol,
		"status":   status,
		"size":     size,
	}
	return entry, nil
}

// statusLevel maps an HTTP status code to a severity.
func statusLevel(status int) model.Level {
	switch {
	case status >= 500:
		return model.LevelError
	case status >= 400:
		return model.LevelWarn
	default:
		return model.LevelInfo
	}
}
