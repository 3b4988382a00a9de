package fetcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingFetcher struct {
	calls int32
	rec   roster.Record
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, id int) (roster.Record, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return roster.Record{}, f.err
	}
	r := f.rec
	r.ID = id
	return r, nil
}

func setupCache(t *testing.T) (*roster.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client, err := roster.NewClient(&redis.Options{Addr: mr.Addr()}, "test-ns")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestCachedFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fetches and fills cache, hit skips fetch", func(t *testing.T) {
		cache, mr := setupCache(t)
		next := &countingFetcher{rec: roster.Record{Name: "Darth Sidious"}}
		f := NewCached(next, cache, time.Hour, zap.NewNop(), nil)

		rec, err := f.Fetch(ctx, 3616)
		require.NoError(t, err)
		assert.Equal(t, "Darth Sidious", rec.Name)
		assert.True(t, mr.Exists(roster.RecordKey("test-ns", 3616)))

		rec, err = f.Fetch(ctx, 3616)
		require.NoError(t, err)
		assert.Equal(t, 3616, rec.ID)
		assert.Equal(t, int32(1), atomic.LoadInt32(&next.calls))
	})

	t.Run("expired entry is fetched again", func(t *testing.T) {
		cache, mr := setupCache(t)
		next := &countingFetcher{rec: roster.Record{Name: "Darth Vader"}}
		f := NewCached(next, cache, time.Minute, zap.NewNop(), nil)

		_, err := f.Fetch(ctx, 1)
		require.NoError(t, err)

		mr.FastForward(2 * time.Minute)

		_, err = f.Fetch(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&next.calls))
	})

	t.Run("fetch error is returned and nothing is cached", func(t *testing.T) {
		cache, mr := setupCache(t)
		next := &countingFetcher{err: errors.New("boom")}
		f := NewCached(next, cache, time.Hour, zap.NewNop(), nil)

		_, err := f.Fetch(ctx, 5)
		require.Error(t, err)
		assert.False(t, mr.Exists(roster.RecordKey("test-ns", 5)))
	})

	t.Run("unreachable cache falls through to fetcher", func(t *testing.T) {
		cache, mr := setupCache(t)
		mr.Close()

		next := &countingFetcher{rec: roster.Record{Name: "Darth Maul"}}
		f := NewCached(next, cache, time.Hour, zap.NewNop(), nil)

		rec, err := f.Fetch(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Darth Maul", rec.Name)
		assert.Equal(t, int32(1), atomic.LoadInt32(&next.calls))
	})
}
