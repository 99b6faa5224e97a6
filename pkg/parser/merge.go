package parser

import (
	"container/heap"
	"context"
	"io"

	"github.com/ccollicutt/logcat/pkg/model"
)

// MergedSource combines multiple LogSources into a single stream ordered by
// timestamp (oldest first). Entries with equal timestamps keep source order.
type MergedSource struct {
	sources     []LogSource
	heap        *entryHeap
	initialized bool
	closed      bool
}

// NewMergedSource creates a LogSource that merges multiple sources by timestamp.
func NewMergedSource(sources ...LogSource) *MergedSource {
	return &MergedSource{
		sources: sources,
		heap:    &entryHeap{},
	}
}

// Next returns the next entry in timestamp order across all sources.
// Returns io.EOF when all sources are exhausted.
func (m *MergedSource) Next(ctx context.Context) (*model.Entry, error) {
	if m.closed {
		return nil, io.EOF
	}

	if !m.initialized {
		if err := m.initHeap(ctx); err != nil {
			return nil, err
		}
		m.initialized = true
	}

	if m.heap.Len() == 0 {
		return nil, io.EOF
	}

	item := heap.Pop(m.heap).(*heapItem)

	// Refill from the same source
	next, err := m.sources[item.sourceIdx].Next(ctx)
	switch {
	case err == nil:
		heap.Push(m.heap, &heapItem{entry: next, sourceIdx: item.sourceIdx})
	case err != io.EOF:
		return nil, err
	}

	return item.entry, nil
}

// initHeap reads the first entry from each source.
func (m *MergedSource) initHeap(ctx context.Context) error {
	heap.Init(m.heap)

	for i, src := range m.sources {
		entry, err := src.Next(ctx)
		if err == io.EOF {
			continue // Empty source
		}
		if err != nil {
			return err
		}
		heap.Push(m.heap, &heapItem{entry: entry, sourceIdx: i})
	}

	return nil
}

// Close releases all source resources.
func (m *MergedSource) Close() error {
	m.closed = true
	var firstErr error
	for _, src := range m.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type heapItem struct {
	entry     *model.Entry
	sourceIdx int
}

// entryHeap implements heap.Interface for timestamp-ordered merging.
type entryHeap []*heapItem

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i].entry, h[j].entry
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if h[i].sourceIdx != h[j].sourceIdx {
		return h[i].sourceIdx < h[j].sourceIdx
	}
	return a.LineNumber < b.LineNumber
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
