package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/stretchr/testify/require"
)

func countingLoader(loads *atomic.Int64, d domain.EventDetail) Loader {
	return func(ctx context.Context) (domain.EventDetail, error) {
		loads.Add(1)
		return d, nil
	}
}

func TestDetailCachePromotionAfterThreshold(t *testing.T) {
	t.Parallel()

	c := New(5, 16)
	detail := domain.EventDetail{ArtistName: "Drake"}
	var loads atomic.Int64
	loader := countingLoader(&loads, detail)
	ctx := context.Background()

	// First four lookups miss, count, and stay out of the warm set.
	for i := 1; i <= 4; i++ {
		got, cached, err := c.GetOrLoad(ctx, "k", loader)
		require.NoError(t, err)
		require.False(t, cached, "lookup %d should miss", i)
		require.Equal(t, detail, got)
	}
	require.EqualValues(t, 4, c.Hits("k"))
	require.Equal(t, 0, c.Len())

	// The fifth lookup reaches the threshold: it still resolves through
	// the store and reports a miss, but promotes the key.
	_, cached, err := c.GetOrLoad(ctx, "k", loader)
	require.NoError(t, err)
	require.False(t, cached)
	require.EqualValues(t, 5, loads.Load())
	require.Equal(t, 1, c.Len())

	// Promotion retires the counter; a warm key is no longer tracked.
	require.EqualValues(t, 0, c.Hits("k"))
	require.Equal(t, 0, c.Tracked())

	// The sixth is a warm hit: no store access, no counter update.
	got, cached, err := c.GetOrLoad(ctx, "k", loader)
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, detail, got)
	require.EqualValues(t, 5, loads.Load())
}

func TestDetailCacheLoaderErrorNotAdmitted(t *testing.T) {
	t.Parallel()

	c := New(1, 16)
	wantErr := errors.New("boom")
	ctx := context.Background()

	_, cached, err := c.GetOrLoad(ctx, "k", func(ctx context.Context) (domain.EventDetail, error) {
		return domain.EventDetail{}, wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.False(t, cached)
	require.Equal(t, 0, c.Len())
	require.EqualValues(t, 1, c.Hits("k"))
}

func TestDetailCacheConcurrentCountsAreNotLost(t *testing.T) {
	t.Parallel()

	const n = 100

	c := New(n*10, 16) // threshold out of reach, every lookup counts
	var loads atomic.Int64
	loader := countingLoader(&loads, domain.EventDetail{})

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrLoad(context.Background(), "hot", loader)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, n, c.Hits("hot"))
	require.Equal(t, 0, c.Len())
}

func TestDetailCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := New(1, 2) // every miss promotes, capacity two
	ctx := context.Background()

	load := func(name string) Loader {
		return func(ctx context.Context) (domain.EventDetail, error) {
			return domain.EventDetail{ArtistName: name}, nil
		}
	}

	for _, k := range []string{"a", "b"} {
		_, _, err := c.GetOrLoad(ctx, k, load(k))
		require.NoError(t, err)
	}
	require.Equal(t, 2, c.Len())

	// Touch "a" so "b" becomes the eviction candidate.
	_, cached, err := c.GetOrLoad(ctx, "a", load("a"))
	require.NoError(t, err)
	require.True(t, cached)

	_, _, err = c.GetOrLoad(ctx, "c", load("c"))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	_, cached, err = c.GetOrLoad(ctx, "a", load("a"))
	require.NoError(t, err)
	require.True(t, cached, "recently used entry must survive eviction")

	var bLoads atomic.Int64
	_, cached, err = c.GetOrLoad(ctx, "b", countingLoader(&bLoads, domain.EventDetail{}))
	require.NoError(t, err)
	require.False(t, cached, "evicted entry must resolve through the store again")
	require.EqualValues(t, 1, bLoads.Load())
}

func TestDetailCacheColdCountersAreBounded(t *testing.T) {
	t.Parallel()

	c := New(5, 2) // counter set capped at 2 * trackFactor
	ctx := context.Background()
	loader := func(ctx context.Context) (domain.EventDetail, error) {
		return domain.EventDetail{}, nil
	}

	// A stream of one-off lookups must not grow the counter set without
	// bound; the oldest counters fall off instead.
	for i := 0; i < 100; i++ {
		_, _, err := c.GetOrLoad(ctx, "one-off-"+strconv.Itoa(i), loader)
		require.NoError(t, err)
	}
	require.LessOrEqual(t, c.Tracked(), 2*trackFactor)
	require.Equal(t, 0, c.Len())
}

func TestDetailCacheEvictedCounterRestartsFromZero(t *testing.T) {
	t.Parallel()

	c := New(5, 1) // counter set capped at trackFactor
	ctx := context.Background()
	loader := func(ctx context.Context) (domain.EventDetail, error) {
		return domain.EventDetail{}, nil
	}

	_, _, err := c.GetOrLoad(ctx, "first", loader)
	require.NoError(t, err)
	require.EqualValues(t, 1, c.Hits("first"))

	// Flood the counter set with distinct keys until "first" falls off.
	for i := 0; i < trackFactor; i++ {
		_, _, err := c.GetOrLoad(ctx, "flood-"+strconv.Itoa(i), loader)
		require.NoError(t, err)
	}
	require.EqualValues(t, 0, c.Hits("first"))
}

func TestKeyIncludesEndTime(t *testing.T) {
	t.Parallel()

	begin := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	base := domain.EventCriteria{
		Title:    "Event 1 featuring Drake",
		Artist:   "Drake",
		Location: "Event Hall, New York, NY, USA",
		BeginAt:  begin,
		EndAt:    begin.Add(2 * time.Hour),
	}

	longer := base
	longer.EndAt = begin.Add(3 * time.Hour)

	require.NotEqual(t, Key(base), Key(longer),
		"events differing only in end time must not share a cache entry")
	require.Equal(t, Key(base), Key(base))
}

func TestKeyDistinguishesFieldBoundaries(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	a := domain.EventCriteria{Title: "ab", Artist: "c", BeginAt: at, EndAt: at}
	b := domain.EventCriteria{Title: "a", Artist: "bc", BeginAt: at, EndAt: at}

	require.NotEqual(t, Key(a), Key(b))
}

func TestDetailCacheDefaults(t *testing.T) {
	t.Parallel()

	c := New(0, 0)
	require.EqualValues(t, DefaultThreshold, c.threshold)
	require.Equal(t, DefaultMaxEntries, c.capacity)
}
