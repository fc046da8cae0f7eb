package sequence

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*mr.Miniredis, *redis.Client) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, redis.NewClient(&redis.Options{Addr: m.Addr()})
}

func TestRedisAllocatorSeedsFromIndex(t *testing.T) {
	m, client := newTestRedis(t)
	f := &fakeFinder{}
	f.set("7")
	a := NewRedisAllocator(client, "seq:docs", f)

	id, err := a.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "8", id)

	got, err := m.Get("seq:docs")
	require.NoError(t, err)
	require.Equal(t, "8", got)

	// a second process must not reseed an existing counter
	b := NewRedisAllocator(client, "seq:docs", &fakeFinder{})
	id, err = b.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "9", id)
}

func TestRedisAllocatorConcurrent(t *testing.T) {
	_, client := newTestRedis(t)
	a := NewRedisAllocator(client, "seq:docs", &fakeFinder{})
	assertOneToN(t, allocateConcurrently(t, a, 40))
}

func TestRedisAllocatorUnavailable(t *testing.T) {
	m, client := newTestRedis(t)
	m.Close()
	a := NewRedisAllocator(client, "seq:docs", &fakeFinder{})
	_, err := a.Next(context.Background())
	require.Error(t, err)
}

func TestRedisAllocatorAdvance(t *testing.T) {
	m, client := newTestRedis(t)
	ctx := context.Background()
	f := &fakeFinder{}
	f.set("1")
	a := NewRedisAllocator(client, "seq:docs", f)

	require.NoError(t, a.Advance(ctx, 5))
	id, err := a.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "6", id)

	require.NoError(t, a.Advance(ctx, 3))
	got, err := m.Get("seq:docs")
	require.NoError(t, err)
	require.Equal(t, "6", got)
}
