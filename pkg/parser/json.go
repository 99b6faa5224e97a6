package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logcat/pkg/model"
)

// Field aliases, highest priority first.
var (
	jsonTimestampKeys  = []string{"timestamp", "time", "date", "@timestamp"}
	jsonLevelKeys      = []string{"level", "severity", "loglevel"}
	jsonMessageKeys    = []string{"message", "msg", "text"}
	jsonSourceKeys     = []string{"source", "logger", "name", "module"}
	jsonStackTraceKeys = []string{"stack_trace", "stacktrace", "exception"}
)

// parseJSON handles one JSON object per line. The decoded object is kept
// whole as the structured fields.
func parseJSON(line string, lineNumber int) (*model.Entry, error) {
	data, err := decodeObject(line)
	if err != nil {
		return nil, fmt.Errorf("decoding json line: %w", err)
	}
	if data == nil {
		// The literal null decodes without error.
		return nil, errNoMatch
	}

	ts := time.Now()
	if v, ok := firstField(data, jsonTimestampKeys); ok {
		if parsed, ok := parseTimestampValue(v); ok {
			ts = parsed
		}
	}

	level := model.LevelInfo
	if v, ok := firstField(data, jsonLevelKeys); ok {
		if s, isString := v.(string); isString {
			level = model.ParseLevel(s)
		}
	}

	var message string
	if v, ok := firstField(data, jsonMessageKeys); ok {
		message = textOf(v)
	} else {
		message = compactJSON(data, line)
	}

	entry := model.NewEntry(ts, level, message, lineNumber, line)

	if v, ok := firstField(data, jsonSourceKeys); ok {
		entry.Source = textOf(v)
	}
	if v, ok := firstField(data, jsonStackTraceKeys); ok {
		entry.StackTrace = textOf(v)
	}

	entry.StructuredFields = data
	return entry, nil
}

// decodeObject decodes one JSON object and keeps integers exact: numbers
// come back as int64, uint64 or float64, and integers too large for either
// stay as json.Number.
func decodeObject(line string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json object")
	}
	for k, v := range data {
		data[k] = exactNumbers(v)
	}
	return data, nil
}

func exactNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		return numberValue(val)
	case map[string]any:
		for k, item := range val {
			val[k] = exactNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = exactNumbers(item)
		}
		return val
	default:
		return v
	}
}

func numberValue(n json.Number) any {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
		return n
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n
}

// firstField returns the value of the first key that is present and neither
// null nor an empty string.
func firstField(data map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := data[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// textOf renders a decoded JSON value as text. Strings are returned as-is;
// objects and arrays are rendered as compact JSON.
func textOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func compactJSON(data map[string]any, fallback string) string {
	b, err := json.Marshal(data)
	if err != nil {
		return fallback
	}
	return string(b)
}
