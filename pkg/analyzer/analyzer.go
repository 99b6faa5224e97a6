// Package analyzer runs log files through the streaming pipeline and
// aggregates statistics over the resulting entries.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/logcat/pkg/filter"
	"github.com/ccollicutt/logcat/pkg/model"
	"github.com/ccollicutt/logcat/pkg/parser"
)

// DefaultMaxEntries caps how many entries an analysis keeps when no limit is
// configured.
const DefaultMaxEntries = 1000

// Analyzer streams one or more log files and summarizes what it reads.
type Analyzer struct {
	format     model.Format
	filter     *filter.Filter
	maxEntries int
	keep       bool
	logger     *zap.Logger
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithFormat forces a format for every file instead of detecting it.
func WithFormat(f model.Format) AnalyzerOption {
	return func(a *Analyzer) {
		a.format = f
	}
}

// WithFilter limits analysis to entries the filter accepts.
func WithFilter(f *filter.Filter) AnalyzerOption {
	return func(a *Analyzer) {
		a.filter = f
	}
}

// WithMaxEntries stops reading after n matching entries. Zero or negative
// means no limit.
func WithMaxEntries(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.maxEntries = n
	}
}

// WithStatisticsOnly aggregates statistics without retaining entries.
func WithStatisticsOnly() AnalyzerOption {
	return func(a *Analyzer) {
		a.keep = false
	}
}

// WithLogger sets the logger passed down to each file stream.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an analyzer. Without options it detects formats, keeps
// up to DefaultMaxEntries entries and applies no filter.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		format:     model.FormatAuto,
		maxEntries: DefaultMaxEntries,
		keep:       true,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalysisResult contains the entries read and their statistics.
type AnalysisResult struct {
	// Entries holds the matching entries in timestamp order across files, or
	// in file order for a single file. Empty with WithStatisticsOnly.
	Entries []*model.Entry

	// Statistics summarizes every entry that was read.
	Statistics Statistics

	// Metadata provides context about the analysis.
	Metadata AnalysisMetadata
}

// AnalysisMetadata provides context about the analysis run.
type AnalysisMetadata struct {
	// Files lists the log files that were read, in the order given.
	Files []string

	// Formats holds the format used for each file, keyed by path.
	Formats map[string]model.Format

	// StartTime is when analysis began.
	StartTime time.Time

	// EndTime is when analysis completed.
	EndTime time.Time

	// LinesProcessed is the number of physical lines read across all files.
	LinesProcessed int

	// Truncated is set when reading stopped at the entry limit.
	Truncated bool
}

// DetectedFormat returns the format of the first file, or "" when no file
// was read.
func (m AnalysisMetadata) DetectedFormat() model.Format {
	if len(m.Files) == 0 {
		return model.FormatAuto
	}
	return m.Formats[m.Files[0]]
}

// Analyze streams the given files and returns what was read. Multiple files
// are merged by timestamp. Every file is opened before any is read, so a
// missing file fails the whole run with model.ErrNotFound.
func (a *Analyzer) Analyze(ctx context.Context, paths []string) (*AnalysisResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no log files given", model.ErrNotFound)
	}

	result := &AnalysisResult{
		Metadata: AnalysisMetadata{
			Files:     paths,
			Formats:   make(map[string]model.Format, len(paths)),
			StartTime: time.Now(),
		},
	}

	streams := make([]*parser.FileStream, 0, len(paths))
	closeAll := func() {
		for _, s := range streams {
			_ = s.Close()
		}
	}

	for _, path := range paths {
		s, err := parser.Open(ctx, path,
			parser.WithFormat(a.format),
			parser.WithFilter(a.filter),
			parser.WithLogger(a.logger))
		if err != nil {
			closeAll()
			return nil, err
		}
		streams = append(streams, s)
		result.Metadata.Formats[path] = s.Format()
	}

	var source parser.LogSource = streams[0]
	if len(streams) > 1 {
		sources := make([]parser.LogSource, len(streams))
		for i, s := range streams {
			sources[i] = s
		}
		source = parser.NewMergedSource(sources...)
	}
	defer source.Close()

	agg := NewAggregator()
	for {
		entry, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading log source: %w", err)
		}

		// Truncated only when an entry exists past the cap.
		if a.maxEntries > 0 && agg.Count() >= a.maxEntries {
			result.Metadata.Truncated = true
			break
		}

		agg.Add(entry)
		if a.keep {
			result.Entries = append(result.Entries, entry)
		}
	}

	for _, s := range streams {
		result.Metadata.LinesProcessed += s.Lines()
	}
	result.Statistics = agg.Result()
	result.Metadata.EndTime = time.Now()

	a.logger.Debug("analysis complete",
		zap.Strings("files", paths),
		zap.Int("entries", result.Statistics.TotalEntries),
		zap.Int("lines", result.Metadata.LinesProcessed),
		zap.Bool("truncated", result.Metadata.Truncated),
		zap.Duration("elapsed", result.Metadata.EndTime.Sub(result.Metadata.StartTime)))

	return result, nil
}
