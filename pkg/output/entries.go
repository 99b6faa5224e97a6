package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ccollicutt/logcat/pkg/model"
)

// Entry output formats accepted by NewEntryWriter.
const (
	EntryFormatNDJSON  = "ndjson"
	EntryFormatJSON    = "json"
	EntryFormatCSV     = "csv"
	EntryFormatMsgpack = "msgpack"
	EntryFormatText    = "text"
)

// EntryFormats lists the names accepted by NewEntryWriter.
func EntryFormats() []string {
	return []string{EntryFormatNDJSON, EntryFormatJSON, EntryFormatCSV, EntryFormatMsgpack, EntryFormatText}
}

// csvHeader is the column order of CSV exports.
var csvHeader = []string{"timestamp", "level", "message", "source", "line_number"}

// WriterOption configures an EntryWriter.
type WriterOption func(*writerConfig)

type writerConfig struct {
	color *bool
}

// WithColor forces ANSI colors on or off for the text writer. By default the
// terminal is probed.
func WithColor(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.color = &enabled
	}
}

// NewEntryWriter returns a writer for the named format.
func NewEntryWriter(name string, w io.Writer, opts ...WriterOption) (EntryWriter, error) {
	cfg := &writerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch strings.ToLower(name) {
	case EntryFormatNDJSON:
		return &ndjsonWriter{w: w, enc: json.NewEncoder(w)}, nil
	case EntryFormatJSON:
		return &jsonArrayWriter{w: w}, nil
	case EntryFormatCSV:
		return &csvWriter{w: csv.NewWriter(w)}, nil
	case EntryFormatMsgpack:
		return &msgpackWriter{enc: msgpack.NewEncoder(w)}, nil
	case EntryFormatText:
		return newTextWriter(w, cfg), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", name, strings.Join(EntryFormats(), ", "))
	}
}

// flusher matches buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

func flush(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// ndjsonWriter writes one JSON object per line, flushing after each entry so
// that consumers see entries as soon as they are read.
type ndjsonWriter struct {
	w   io.Writer
	enc *json.Encoder
}

func (n *ndjsonWriter) Write(e *model.Entry) error {
	if err := n.enc.Encode(e); err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	return flush(n.w)
}

func (n *ndjsonWriter) Close() error {
	return flush(n.w)
}

// jsonArrayWriter writes an indented JSON array incrementally.
type jsonArrayWriter struct {
	w     io.Writer
	count int
}

func (j *jsonArrayWriter) Write(e *model.Entry) error {
	data, err := json.MarshalIndent(e, "  ", "  ")
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	sep := ",\n  "
	if j.count == 0 {
		sep = "[\n  "
	}
	if _, err := io.WriteString(j.w, sep); err != nil {
		return err
	}
	if _, err := j.w.Write(data); err != nil {
		return err
	}
	j.count++
	return nil
}

func (j *jsonArrayWriter) Close() error {
	end := "\n]\n"
	if j.count == 0 {
		end = "[]\n"
	}
	if _, err := io.WriteString(j.w, end); err != nil {
		return err
	}
	return flush(j.w)
}

// csvWriter writes the header lazily, so an export with no entries produces
// no output at all.
type csvWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

func (c *csvWriter) Write(e *model.Entry) error {
	if !c.wroteHeader {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	return c.w.Write([]string{
		e.DisplayTime(),
		e.Level.String(),
		e.Message,
		e.Source,
		strconv.Itoa(e.LineNumber),
	})
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

// msgpackWriter writes a stream of msgpack maps, one per entry, with the
// same keys as the JSON form.
type msgpackWriter struct {
	enc *msgpack.Encoder
}

func (m *msgpackWriter) Write(e *model.Entry) error {
	if err := m.enc.Encode(e.Record()); err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	return nil
}

func (m *msgpackWriter) Close() error {
	return nil
}

// textWriter renders one colored line per entry, followed by the indented
// stack trace when there is one.
type textWriter struct {
	w      io.Writer
	levels map[model.Level]*color.Color
	dim    *color.Color
}

func newTextWriter(w io.Writer, cfg *writerConfig) *textWriter {
	t := &textWriter{
		w: w,
		levels: map[model.Level]*color.Color{
			model.LevelTrace: color.New(color.FgHiBlack),
			model.LevelDebug: color.New(color.FgCyan),
			model.LevelInfo:  color.New(color.FgGreen),
			model.LevelWarn:  color.New(color.FgYellow),
			model.LevelError: color.New(color.FgRed),
			model.LevelFatal: color.New(color.FgRed, color.Bold),
		},
		dim: color.New(color.Faint),
	}

	if cfg.color != nil {
		all := []*color.Color{t.dim}
		for _, c := range t.levels {
			all = append(all, c)
		}
		for _, c := range all {
			if *cfg.color {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
	return t
}

func (t *textWriter) Write(e *model.Entry) error {
	var b strings.Builder

	b.WriteString(t.dim.Sprint(e.DisplayTime()))
	b.WriteByte(' ')

	level := fmt.Sprintf("%-5s", e.Level)
	if c, ok := t.levels[e.Level]; ok {
		level = c.Sprint(level)
	}
	b.WriteString(level)
	b.WriteByte(' ')

	if e.Source != "" {
		b.WriteString("[" + e.Source + "] ")
	}
	b.WriteString(e.Message)
	b.WriteByte('\n')

	if e.StackTrace != "" {
		for _, line := range strings.Split(strings.TrimRight(e.StackTrace, "\n"), "\n") {
			b.WriteString("    " + line + "\n")
		}
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *textWriter) Close() error {
	return flush(t.w)
}
