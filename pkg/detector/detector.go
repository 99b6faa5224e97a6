// Package detector infers the dialect of a log file from sample lines.
package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/ccollicutt/logcat/pkg/model"
)

// DetectionResult holds the result of classifying a sample of lines.
type DetectionResult struct {
	Matches      []FormatMatch // Sorted by confidence descending
	SampledLines int           // Non-empty lines classified
}

// FormatMatch is the share of sampled lines that a format claimed.
type FormatMatch struct {
	Format     model.Format
	Confidence float64 // 0.0 to 1.0
	MatchCount int
	SampleLine string // First line that was classified as Format
}

// Detector classifies a sample of lines rather than a single one. The stream
// itself only ever looks at the first line; this is for reporting.
type Detector struct {
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector.
func New(opts ...Option) *Detector {
	d := &Detector{sampleSize: 100}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile samples the head of a file and classifies it.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines classifies each non-empty line with Detect and tallies the
// results.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}

	counts := make(map[model.Format]*FormatMatch)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.SampledLines++

		f := Detect(line)
		m := counts[f]
		if m == nil {
			m = &FormatMatch{Format: f, SampleLine: line}
			counts[f] = m
		}
		m.MatchCount++
	}

	if result.SampledLines == 0 {
		return result
	}

	rank := make(map[model.Format]int)
	for i, f := range model.Formats() {
		rank[f] = i
	}

	for _, m := range counts {
		m.Confidence = float64(m.MatchCount) / float64(result.SampledLines)
		result.Matches = append(result.Matches, *m)
	}

	// Ties go to the format that comes first in detection order.
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].MatchCount != result.Matches[j].MatchCount {
			return result.Matches[i].MatchCount > result.Matches[j].MatchCount
		}
		return rank[result.Matches[i].Format] < rank[result.Matches[j].Format]
	})

	return result
}

// sampleFile reads up to sampleSize non-empty lines from a file.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	reader := bufio.NewReader(file)

	for len(lines) < d.sampleSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if nothing was sampled.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one line was classified.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// Mixed reports whether the sample contained more than one format. A stream
// applies the first line's format to every line, so other lines will degrade
// to plain text.
func (r *DetectionResult) Mixed() bool {
	return len(r.Matches) > 1
}
