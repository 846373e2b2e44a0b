// Package cache provides the in-process read-through cache fronting event
// detail lookups. Entries are admitted only after a key has been requested a
// configurable number of times, so one-off queries never occupy memory while
// hot repeated lookups stop hitting the store entirely. Both the warm set
// and the miss counters are bounded.
package cache

import (
	"container/list"
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/kirinyoku/stagepass/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultThreshold  = 5
	DefaultMaxEntries = 1024

	// The counter set is wider than the warm set so promotion candidates
	// are not churned out before reaching the threshold.
	trackFactor = 8
)

// Loader resolves a missed key against the backing store.
type Loader func(ctx context.Context) (domain.EventDetail, error)

// DetailCache counts lookups per key and promotes a key into the warm set
// once its count reaches the threshold. The warm set is bounded: admitting
// a key beyond capacity evicts the least recently used entry. Counters are
// bounded the same way; a counter evicted cold restarts from zero, and
// promotion retires the key's counter.
type DetailCache struct {
	threshold int64
	capacity  int
	trackCap  int

	sf singleflight.Group

	mu      sync.Mutex // guards warm/lru and cold/coldLRU
	warm    map[string]*list.Element
	lru     *list.List // front = most recently used
	cold    map[string]*list.Element
	coldLRU *list.List
}

type entry struct {
	key string
	val domain.EventDetail
}

type counter struct {
	key string
	n   int64
}

func New(threshold, capacity int) *DetailCache {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}

	return &DetailCache{
		threshold: int64(threshold),
		capacity:  capacity,
		trackCap:  capacity * trackFactor,
		warm:      make(map[string]*list.Element),
		lru:       list.New(),
		cold:      make(map[string]*list.Element),
		coldLRU:   list.New(),
	}
}

// Key derives the cache key from the lookup criteria. The end time is part
// of the key: the store filters on it, so leaving it out would let two
// events differing only in end time collide on one entry.
func Key(c domain.EventCriteria) string {
	var b strings.Builder
	b.WriteString(c.Title)
	b.WriteByte('|')
	b.WriteString(c.Artist)
	b.WriteByte('|')
	b.WriteString(c.Location)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(c.BeginAt.UnixNano(), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(c.EndAt.UnixNano(), 10))
	return b.String()
}

// GetOrLoad answers from the warm set when possible, otherwise counts the
// miss, resolves through loader and promotes the key once it has been asked
// for threshold times. The promoting lookup itself still resolves through
// the store and reports a miss; only later lookups are hits.
//
// Returns the detail and whether it was served from the warm set.
func (c *DetailCache) GetOrLoad(ctx context.Context, key string, loader Loader) (domain.EventDetail, bool, error) {
	if v, ok := c.get(key); ok {
		return v, true, nil
	}

	n := c.bump(key)

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return domain.EventDetail{}, false, err
	}

	v := vAny.(domain.EventDetail)

	if n >= c.threshold {
		c.admit(key, v)
	}

	return v, false, nil
}

// Hits returns how many misses key has accumulated towards promotion. Zero
// for unseen keys, keys whose counter was evicted cold, and promoted keys.
func (c *DetailCache) Hits(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.cold[key]; ok {
		return el.Value.(*counter).n
	}
	return 0
}

// Len reports the current warm-set size.
func (c *DetailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warm)
}

// Tracked reports how many keys currently carry a miss counter.
func (c *DetailCache) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cold)
}

func (c *DetailCache) get(key string) (domain.EventDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.warm[key]
	if !ok {
		return domain.EventDetail{}, false
	}

	c.lru.MoveToFront(el)
	return el.Value.(*entry).val, true
}

func (c *DetailCache) bump(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.cold[key]; ok {
		c.coldLRU.MoveToFront(el)
		ctr := el.Value.(*counter)
		ctr.n++
		return ctr.n
	}

	if len(c.cold) >= c.trackCap {
		oldest := c.coldLRU.Back()
		if oldest != nil {
			c.coldLRU.Remove(oldest)
			delete(c.cold, oldest.Value.(*counter).key)
		}
	}

	c.cold[key] = c.coldLRU.PushFront(&counter{key: key, n: 1})
	return 1
}

func (c *DetailCache) admit(key string, v domain.EventDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A warm key no longer needs counting.
	if el, ok := c.cold[key]; ok {
		c.coldLRU.Remove(el)
		delete(c.cold, key)
	}

	if el, ok := c.warm[key]; ok {
		// Concurrent promotion of the same key: last writer wins, the
		// value is equal either way.
		el.Value.(*entry).val = v
		c.lru.MoveToFront(el)
		return
	}

	if len(c.warm) >= c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.warm, oldest.Value.(*entry).key)
		}
	}

	c.warm[key] = c.lru.PushFront(&entry{key: key, val: v})
}
