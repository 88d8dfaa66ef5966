// Package cache keeps merged weather results warm. Each cached coordinate
// owns one recurring background refresh, independent of read traffic.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/jpelletier/weatherfuse/internal/weather"
)

// DefaultRefreshInterval is the fixed period between background refreshes.
const DefaultRefreshInterval = 10 * time.Minute

// FetchFunc performs one full two-source fetch and merge for a coordinate.
type FetchFunc func(ctx context.Context, coord weather.Coordinate) (*weather.NormalizedWeather, error)

// CacheMeta is the per-key operational metadata attached to snapshots.
type CacheMeta struct {
	Cached      bool      `json:"cached"`
	AgeMs       int64     `json:"ageMs"`
	RefreshedAt time.Time `json:"refreshedAt"`
	FetchCount  int64     `json:"fetchCount"`
	ErrorCount  int64     `json:"errorCount"`
	LastError   string    `json:"lastError,omitempty"`
}

// Snapshot is a read-only copy of a cache entry. Callers never receive
// references into live entries.
type Snapshot struct {
	weather.NormalizedWeather
	Cache CacheMeta `json:"cache"`
}

// Stats aggregates over all live entries, computed on demand.
type Stats struct {
	LocationCount int   `json:"locationCount"`
	TotalFetches  int64 `json:"totalFetches"`
	TotalErrors   int64 `json:"totalErrors"`
	AverageAgeMs  int64 `json:"averageAgeMs"`
}

type entry struct {
	coord       weather.Coordinate
	data        *weather.NormalizedWeather
	refreshedAt time.Time
	fetchCount  int64
	errorCount  int64
	lastError   string
	stopped     bool
}

// RefreshCache is a keyed store of normalized results. It exclusively owns
// every entry and its recurring refresh task.
type RefreshCache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	warming  map[string]chan struct{}
	shutdown bool

	sched    *gocron.Scheduler
	fetch    FetchFunc
	interval time.Duration
	timeout  time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// New creates a RefreshCache and starts its scheduler. interval <= 0 falls
// back to DefaultRefreshInterval.
func New(fetch FetchFunc, interval, fetchTimeout time.Duration, logger *zap.SugaredLogger) *RefreshCache {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	sched := gocron.NewScheduler(time.UTC)
	// Ensure seeds entries synchronously; the first scheduled run waits a
	// full interval instead of firing immediately.
	sched.WaitForScheduleAll()
	sched.StartAsync()

	return &RefreshCache{
		entries:  make(map[string]*entry),
		warming:  make(map[string]chan struct{}),
		sched:    sched,
		fetch:    fetch,
		interval: interval,
		timeout:  fetchTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Get is a pure lookup. It never triggers a fetch.
func (c *RefreshCache) Get(coord weather.Coordinate) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[coord.Key()]
	if !ok {
		return nil, false
	}
	return c.snapshotLocked(e), true
}

// Ensure returns the cached result for the coordinate, performing the first
// synchronous fetch and starting the key's recurring refresh when the key is
// absent. Fetch failures on the miss path propagate to the caller.
func (c *RefreshCache) Ensure(ctx context.Context, coord weather.Coordinate) (*Snapshot, error) {
	key := coord.Key()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		snap := c.snapshotLocked(e)
		c.mu.Unlock()
		return snap, nil
	}
	// Another caller is already warming this key; wait for it rather than
	// fetching twice.
	if ch, ok := c.warming[key]; ok {
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if snap, ok := c.Get(coord); ok {
			return snap, nil
		}
		// The warming fetch failed; fall through to our own attempt.
	} else {
		ch = make(chan struct{})
		c.warming[key] = ch
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			delete(c.warming, key)
			c.mu.Unlock()
			close(ch)
		}()
	}

	data, err := c.fetch(ctx, coord)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return &Snapshot{NormalizedWeather: *data.Clone()}, nil
	}
	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			coord:       coord,
			data:        data,
			refreshedAt: c.now().UTC(),
			fetchCount:  1,
		}
		c.entries[key] = e
		c.startRefreshLocked(key)
	}
	snap := c.snapshotLocked(e)
	c.mu.Unlock()
	return snap, nil
}

// startRefreshLocked registers the key's recurring job. SingletonMode keeps
// at most one refresh in flight per key; a tick that fires while the previous
// one is still running is skipped.
func (c *RefreshCache) startRefreshLocked(key string) {
	job, err := c.sched.Every(c.interval).Tag(key).Do(func() {
		c.refreshKey(key)
	})
	if err != nil {
		c.logger.Errorw("failed to schedule refresh task", "key", key, "error", err)
		return
	}
	job.SingletonMode()
}

// refreshKey is one background tick: full fetch and merge, then an atomic
// commit. On failure the previous good data stays in place.
func (c *RefreshCache) refreshKey(key string) {
	c.mu.RLock()
	e, ok := c.entries[key]
	down := c.shutdown
	var coord weather.Coordinate
	if ok {
		coord = e.coord
	}
	c.mu.RUnlock()
	if !ok || down {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	data, err := c.fetch(ctx, coord)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok = c.entries[key]
	if !ok || e.stopped || c.shutdown {
		// Key was stopped or the cache shut down mid-flight; discard.
		return
	}
	if err != nil {
		e.errorCount++
		e.lastError = err.Error()
		c.logger.Warnw("background refresh failed, keeping last good data",
			"key", key, "errorCount", e.errorCount, "error", err)
		return
	}
	e.data = data
	e.refreshedAt = c.now().UTC()
	e.fetchCount++
	e.lastError = ""
}

// Stop cancels the key's recurring task and evicts the entry. Idempotent.
func (c *RefreshCache) Stop(coord weather.Coordinate) {
	key := coord.Key()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.stopped = true
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := c.sched.RemoveByTag(key); err != nil {
		c.logger.Debugw("no scheduled task to remove", "key", key, "error", err)
	}
}

// Stats aggregates the live entries.
func (c *RefreshCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{LocationCount: len(c.entries)}
	if len(c.entries) == 0 {
		return s
	}
	var ageSum int64
	now := c.now().UTC()
	for _, e := range c.entries {
		s.TotalFetches += e.fetchCount
		s.TotalErrors += e.errorCount
		ageSum += now.Sub(e.refreshedAt).Milliseconds()
	}
	s.AverageAgeMs = ageSum / int64(len(c.entries))
	return s
}

// Shutdown cancels every recurring task and clears all entries. Safe to call
// once at process teardown; ticks already in flight become no-ops.
func (c *RefreshCache) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	for _, e := range c.entries {
		e.stopped = true
	}
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	c.sched.Clear()
	c.sched.Stop()
	c.logger.Infow("refresh cache shut down")
}

func (c *RefreshCache) snapshotLocked(e *entry) *Snapshot {
	return &Snapshot{
		NormalizedWeather: *e.data.Clone(),
		Cache: CacheMeta{
			Cached:      true,
			AgeMs:       c.now().UTC().Sub(e.refreshedAt).Milliseconds(),
			RefreshedAt: e.refreshedAt,
			FetchCount:  e.fetchCount,
			ErrorCount:  e.errorCount,
			LastError:   e.lastError,
		},
	}
}
