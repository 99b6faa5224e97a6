package parser

import (
	"context"
	"io"
	"iter"

	"github.com/ccollicutt/logcat/pkg/model"
)

// All adapts a LogSource to a range-over-func iterator. The source is closed
// when iteration ends, whether by exhaustion, error or an early break. A
// non-EOF error is yielded once as the final element.
func All(ctx context.Context, src LogSource) iter.Seq2[*model.Entry, error] {
	return func(yield func(*model.Entry, error) bool) {
		defer src.Close()
		for {
			entry, err := src.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// Collect drains src into a slice, stopping after limit entries when limit is
// positive. The source is always closed before Collect returns.
func Collect(ctx context.Context, src LogSource, limit int) ([]*model.Entry, error) {
	var entries []*model.Entry
	for entry, err := range All(ctx, src) {
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}
