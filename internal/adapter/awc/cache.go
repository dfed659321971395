package awc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedFetcher wraps a ReportFetcher with an in-memory LRU cache. Entries
// expire after a fixed TTL so a station's report is refreshed.
type CachedFetcher struct {
	inner   domain.ReportFetcher
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher. A nil clock
// uses the real clock.
func NewCachedFetcher(inner domain.ReportFetcher, maxEntries int, ttl time.Duration, clk clockwork.Clock, metrics *observability.Metrics) *CachedFetcher {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clk,
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchReport(ctx context.Context, station string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(station))
	now := c.clock.Now()
	if report, ok := c.cache.get(key, now); ok {
		c.metrics.ReportCache.WithLabelValues("hit").Inc()
		return report, nil
	}
	c.metrics.ReportCache.WithLabelValues("miss").Inc()

	report, err := c.inner.FetchReport(ctx, key)
	if err != nil {
		return "", err
	}
	c.cache.put(key, report, now.Add(c.ttl))
	return report, nil
}

// lruCache is a simple thread-safe LRU cache of reports with expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   string
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !now.Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return "", false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key, value string, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value, e.expires = value, expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
