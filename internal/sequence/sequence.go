// Package sequence allocates the decimal identifiers of new documents.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/debatearchive/catalog/internal/document"
)

// Allocator hands out the identifier for the next created document.
// Advance moves the sequence so that no id at or below n is issued again;
// it never moves it backwards.
type Allocator interface {
	Next(ctx context.Context) (string, error)
	Advance(ctx context.Context, n int64) error
}

// LatestFinder returns the most recently indexed document by timestamp,
// or nil when the index is empty.
type LatestFinder interface {
	Latest(ctx context.Context) (*document.Document, error)
}

// Baseline is the numeric id of the most recent document. An empty index
// or an id that does not parse as base-10 yields 0.
func Baseline(ctx context.Context, f LatestFinder) (int64, error) {
	d, err := f.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("read latest document: %w", err)
	}
	if d == nil {
		return 0, nil
	}
	n, _ := NumericID(d.ID)
	return n, nil
}

// IndexAllocator derives ids from the index itself: baseline + 1. A
// high-water mark of issued ids keeps concurrent callers in one process
// from receiving the same id before their documents become visible.
type IndexAllocator struct {
	finder LatestFinder

	mu     sync.Mutex
	issued int64
}

func NewIndexAllocator(f LatestFinder) *IndexAllocator {
	return &IndexAllocator{finder: f}
}

func (a *IndexAllocator) Next(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	base, err := Baseline(ctx, a.finder)
	if err != nil {
		return "", err
	}
	if a.issued > base {
		base = a.issued
	}
	a.issued = base + 1
	return strconv.FormatInt(a.issued, 10), nil
}

func (a *IndexAllocator) Advance(ctx context.Context, n int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n > a.issued {
		a.issued = n
	}
	return nil
}

// NumericID parses a decimal document id. ok is false for anything else.
func NumericID(id string) (n int64, ok bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
