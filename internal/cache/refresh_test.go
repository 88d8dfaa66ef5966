package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jpelletier/weatherfuse/internal/weather"
)

var testCoord = weather.Coordinate{Lat: 45.4215, Lon: -75.6998}

// stubFetcher counts invocations and can be flipped into a failing state.
type stubFetcher struct {
	mu    sync.Mutex
	calls int
	fail  bool
	temp  float64
}

func (s *stubFetcher) fetch(ctx context.Context, coord weather.Coordinate) (*weather.NormalizedWeather, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return nil, weather.ErrAllSourcesFailed
	}
	return &weather.NormalizedWeather{
		Coordinate: coord,
		Current:    []weather.CurrentConditions{{Temperature: weather.Float(s.temp)}},
		Sources: weather.SourceInfo{
			Primary:    weather.SourceEnvironmentCanada,
			Confidence: weather.ConfidenceRegionalOnly,
		},
	}, nil
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubFetcher) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// newTestCache uses an hour-long interval so gocron never ticks during a
// test; refreshes are driven directly through refreshKey.
func newTestCache(t *testing.T, fetch FetchFunc) *RefreshCache {
	t.Helper()
	c := New(fetch, time.Hour, time.Second, zap.NewNop().Sugar())
	t.Cleanup(c.Shutdown)
	return c
}

func TestGetNeverFetches(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	_, ok := c.Get(testCoord)
	assert.False(t, ok)
	assert.Equal(t, 0, stub.callCount())
}

func TestEnsureFetchesOnceAndCaches(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	first, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)
	second, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.callCount())
	assert.Equal(t, first.Current, second.Current)
	assert.True(t, second.Cache.Cached)
	assert.Equal(t, int64(1), second.Cache.FetchCount)
}

func TestEnsureFailurePropagates(t *testing.T) {
	stub := &stubFetcher{fail: true}
	c := newTestCache(t, stub.fetch)

	_, err := c.Ensure(context.Background(), testCoord)
	assert.ErrorIs(t, err, weather.ErrAllSourcesFailed)

	_, ok := c.Get(testCoord)
	assert.False(t, ok)
}

func TestRefreshSuccessReplacesData(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	_, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)

	stub.mu.Lock()
	stub.temp = 21
	stub.mu.Unlock()
	c.refreshKey(testCoord.Key())

	snap, ok := c.Get(testCoord)
	require.True(t, ok)
	assert.Equal(t, 21.0, *snap.Current[0].Temperature)
	assert.Equal(t, int64(2), snap.Cache.FetchCount)
	assert.Empty(t, snap.Cache.LastError)
}

func TestRefreshFailureKeepsLastGoodData(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	_, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)

	stub.setFail(true)
	c.refreshKey(testCoord.Key())

	snap, ok := c.Get(testCoord)
	require.True(t, ok)
	assert.Equal(t, 18.0, *snap.Current[0].Temperature)
	assert.Equal(t, int64(1), snap.Cache.ErrorCount)
	assert.Contains(t, snap.Cache.LastError, "all weather sources failed")
	assert.Equal(t, int64(1), snap.Cache.FetchCount)

	// Next success clears the error and bumps the fetch count.
	stub.setFail(false)
	c.refreshKey(testCoord.Key())

	snap, ok = c.Get(testCoord)
	require.True(t, ok)
	assert.Empty(t, snap.Cache.LastError)
	assert.Equal(t, int64(1), snap.Cache.ErrorCount)
	assert.Equal(t, int64(2), snap.Cache.FetchCount)
}

func TestStopEvictsAndIsIdempotent(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	_, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)

	c.Stop(testCoord)
	_, ok := c.Get(testCoord)
	assert.False(t, ok)

	c.Stop(testCoord) // no-op

	// A tick that was in flight when the key stopped must not resurrect it.
	c.refreshKey(testCoord.Key())
	_, ok = c.Get(testCoord)
	assert.False(t, ok)
}

func TestSnapshotsAreCopies(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	snap, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)
	*snap.Current[0].Temperature = 99

	again, ok := c.Get(testCoord)
	require.True(t, ok)
	assert.Equal(t, 18.0, *again.Current[0].Temperature)
}

func TestStatsAggregatesLiveEntries(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	other := weather.Coordinate{Lat: 43.6532, Lon: -79.3832}
	_, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)
	_, err = c.Ensure(context.Background(), other)
	require.NoError(t, err)

	stub.setFail(true)
	c.refreshKey(testCoord.Key())

	stats := c.Stats()
	assert.Equal(t, 2, stats.LocationCount)
	assert.Equal(t, int64(2), stats.TotalFetches)
	assert.Equal(t, int64(1), stats.TotalErrors)
	assert.GreaterOrEqual(t, stats.AverageAgeMs, int64(0))
}

func TestShutdownClearsEntriesAndIgnoresLateTicks(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := New(stub.fetch, time.Hour, time.Second, zap.NewNop().Sugar())

	_, err := c.Ensure(context.Background(), testCoord)
	require.NoError(t, err)

	c.Shutdown()

	_, ok := c.Get(testCoord)
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())

	// A tick firing after shutdown is a no-op.
	calls := stub.callCount()
	c.refreshKey(testCoord.Key())
	assert.Equal(t, calls, stub.callCount())
}

func TestEnsureConcurrentWarmingFetchesOnce(t *testing.T) {
	stub := &stubFetcher{temp: 18}
	c := newTestCache(t, stub.fetch)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Ensure(context.Background(), testCoord)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, stub.callCount())
}

func TestEnsureWithCancelledContext(t *testing.T) {
	block := make(chan struct{})
	fetch := func(ctx context.Context, coord weather.Coordinate) (*weather.NormalizedWeather, error) {
		select {
		case <-block:
			return nil, errors.New("released")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := newTestCache(t, fetch)
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Ensure(ctx, testCoord)
	assert.Error(t, err)
}
