// Package cache keeps recent full race results in memory. Lap-by-lap data
// is too large for the save blob, so the server serves replays from here and
// falls back to the stored round summary once a result is evicted.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/teamprincipal/paddock/internal/platform/metrics"
	"github.com/teamprincipal/paddock/internal/race"
)

// Key identifies one race in a career.
type Key struct {
	Season int
	Round  int
}

func (k Key) String() string {
	return fmt.Sprintf("season:%d:round:%d", k.Season, k.Round)
}

// ResultCache is a bounded LRU of race results. It is not the source of
// truth.
type ResultCache struct {
	results *lru.Cache[Key, race.Result]
	metrics *metrics.Collector
}

// NewResultCache creates a cache holding at most size results.
func NewResultCache(size int, m *metrics.Collector) (*ResultCache, error) {
	results, err := lru.New[Key, race.Result](size)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	if m == nil {
		m = metrics.Get()
	}
	return &ResultCache{results: results, metrics: m}, nil
}

// Put stores a finished race under its season and round.
func (c *ResultCache) Put(season int, res race.Result) {
	c.results.Add(Key{Season: season, Round: res.Round}, res)
}

// Get returns a cached result. Every lookup is counted as a hit or miss.
func (c *ResultCache) Get(season, round int) (race.Result, bool) {
	res, ok := c.results.Get(Key{Season: season, Round: round})
	c.metrics.RecordCache(ok)
	return res, ok
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	return c.results.Len()
}

// Purge drops every result, e.g. after a different save is loaded.
func (c *ResultCache) Purge() {
	c.results.Purge()
}
