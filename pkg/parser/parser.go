package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ccollicutt/logcat/pkg/detector"
	"github.com/ccollicutt/logcat/pkg/filter"
	"github.com/ccollicutt/logcat/pkg/model"
)

// FileStream implements LogSource over a single log file. It is single-pass:
// once exhausted or closed it cannot be restarted.
type FileStream struct {
	path   string
	format model.Format
	filter *filter.Filter
	logger *zap.Logger

	file   *os.File
	reader *bufio.Reader

	line     int
	degraded int
	emitted  int
	atEOF    bool
	done     bool
}

// StreamOption configures a FileStream.
type StreamOption func(*FileStream)

// WithFormat fixes the format instead of detecting it from the first line.
// FormatAuto keeps detection on.
func WithFormat(f model.Format) StreamOption {
	return func(s *FileStream) {
		s.format = f
	}
}

// WithFilter drops entries the filter rejects before they are returned.
func WithFilter(f *filter.Filter) StreamOption {
	return func(s *FileStream) {
		s.filter = f
	}
}

// WithLogger sets the logger used for degraded lines and stream summaries.
func WithLogger(l *zap.Logger) StreamOption {
	return func(s *FileStream) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open prepares a stream over path. It fails with model.ErrNotFound when the
// path is not an existing regular file and with model.ErrUnsupportedFormat
// when WithFormat names a format outside the closed set. Without WithFormat the first line
// of the file is read once to detect the format, and streaming then starts
// again from the top of the file. The caller must Close the stream.
func Open(ctx context.Context, path string, opts ...StreamOption) (*FileStream, error) {
	s := &FileStream{
		path:   path,
		format: model.FormatAuto,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.format.Known() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, string(s.format))
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, path)
		}
		return nil, fmt.Errorf("checking log file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrNotFound, path)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.format == model.FormatAuto {
		first, err := readFirstLine(path)
		if err != nil {
			return nil, err
		}
		s.format = detector.Detect(first)
		s.logger.Debug("detected log format",
			zap.String("file", path),
			zap.Stringer("format", s.format))
	}

	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	s.file = f
	s.reader = bufio.NewReader(decodeUTF8(f))

	return s, nil
}

// readFirstLine returns the first physical line of the file, which may be
// empty.
func readFirstLine(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return "", fmt.Errorf("opening log file %s: %w", path, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(decodeUTF8(f)).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return line, nil
}

// decodeUTF8 strips a leading BOM and replaces invalid UTF-8 with U+FFFD.
func decodeUTF8(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// Next returns the next entry that passes the filter, or io.EOF. The file is
// closed when the end is reached or a read fails.
func (s *FileStream) Next(ctx context.Context) (*model.Entry, error) {
	for {
		if s.done {
			return nil, io.EOF
		}
		if s.atEOF {
			s.finish()
			return nil, io.EOF
		}

		if err := ctx.Err(); err != nil {
			s.finish()
			return nil, err
		}

		raw, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			s.finish()
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
		if err == io.EOF {
			s.atEOF = true
			if raw == "" {
				continue
			}
		}

		s.line++
		entry := Parse(raw, s.line, s.format)
		if entry == nil {
			continue
		}
		entry.File = s.path

		if entry.Degraded {
			s.degraded++
			s.logger.Debug("line did not match format, parsed as plain text",
				zap.String("file", s.path),
				zap.Int("line", s.line),
				zap.Stringer("format", s.format))
		}

		if !s.filter.Matches(entry) {
			continue
		}

		s.emitted++
		return entry, nil
	}
}

// Entries returns an iterator over the remaining entries. Leaving the loop
// early closes the stream.
func (s *FileStream) Entries(ctx context.Context) iter.Seq2[*model.Entry, error] {
	return All(ctx, s)
}

// Close releases the file handle. It is safe to call more than once.
func (s *FileStream) Close() error {
	if s.file == nil {
		s.done = true
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.done = true
	return err
}

func (s *FileStream) finish() {
	if s.done {
		return
	}
	_ = s.Close()
	s.logger.Info("finished reading log file",
		zap.String("file", s.path),
		zap.Stringer("format", s.format),
		zap.Int("lines", s.line),
		zap.Int("entries", s.emitted),
		zap.Int("degraded", s.degraded))
}

// Path returns the file being streamed.
func (s *FileStream) Path() string {
	return s.path
}

// Format returns the format in use, after detection if it was requested.
func (s *FileStream) Format() model.Format {
	return s.format
}

// Lines returns the number of physical lines read so far.
func (s *FileStream) Lines() int {
	return s.line
}

// Degraded returns how many lines fell back to plain text so far.
func (s *FileStream) Degraded() int {
	return s.degraded
}

// Closed reports whether the file handle has been released.
func (s *FileStream) Closed() bool {
	return s.done
}
