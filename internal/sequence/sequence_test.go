package sequence

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/stretchr/testify/require"
)

type fakeFinder struct {
	mu     sync.Mutex
	latest *document.Document
	err    error
}

func (f *fakeFinder) Latest(ctx context.Context) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.err
}

func (f *fakeFinder) set(id string) {
	f.mu.Lock()
	f.latest = &document.Document{ID: id}
	f.mu.Unlock()
}

func TestBaseline(t *testing.T) {
	ctx := context.Background()
	f := &fakeFinder{}
	n, err := Baseline(ctx, f)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)

	f.set("41")
	n, err = Baseline(ctx, f)
	require.NoError(t, err)
	require.Equal(t, int64(41), n)

	f.set("not-a-number")
	n, err = Baseline(ctx, f)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)

	f.err = errors.New("boom")
	_, err = Baseline(ctx, f)
	require.Error(t, err)
}

func TestIndexAllocatorSequential(t *testing.T) {
	ctx := context.Background()
	f := &fakeFinder{}
	a := NewIndexAllocator(f)

	id, err := a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "1", id)
	f.set(id)

	id, err = a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "2", id)

	// document 2 not visible yet: the high-water mark still moves forward
	id, err = a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "3", id)

	// index moved ahead (another writer): follow it
	f.set("10")
	id, err = a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "11", id)
}

func assertOneToN(t *testing.T, ids []string) {
	t.Helper()
	nums := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		require.NoError(t, err)
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for i, n := range nums {
		require.Equal(t, i+1, n)
	}
}

func allocateConcurrently(t *testing.T, a Allocator, n int) []string {
	t.Helper()
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = a.Next(context.Background())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	return ids
}

func TestIndexAllocatorConcurrent(t *testing.T) {
	a := NewIndexAllocator(&fakeFinder{})
	assertOneToN(t, allocateConcurrently(t, a, 50))
}

func TestIndexAllocatorAdvance(t *testing.T) {
	ctx := context.Background()
	f := &fakeFinder{}
	f.set("1")
	a := NewIndexAllocator(f)

	// restored ids above the newest document by timestamp
	require.NoError(t, a.Advance(ctx, 5))
	id, err := a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "6", id)

	// never backwards
	require.NoError(t, a.Advance(ctx, 2))
	id, err = a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "7", id)
}

func TestNumericID(t *testing.T) {
	n, ok := NumericID("42")
	require.True(t, ok)
	require.Equal(t, int64(42), n)
	for _, id := range []string{"", "abc", "-3", "4.2"} {
		_, ok := NumericID(id)
		require.False(t, ok, id)
	}
}
