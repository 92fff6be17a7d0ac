// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dashforge/internal/models"
)

const (
	// DefaultTTL applies when a non-positive TTL is configured.
	DefaultTTL = 30 * time.Second

	// DefaultMaxEntries applies when a non-positive bound is configured.
	DefaultMaxEntries = 1024

	sweepInterval = time.Minute
)

type payloadEntry struct {
	payload    models.RawPayload
	dataSource string
	expiresAt  time.Time
}

// Cache holds decoded backend payloads for a fixed TTL. Entries remember the
// data source they came from so one source can be invalidated on its own.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]payloadEntry
	bySource   map[string]map[string]struct{}
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// New creates a Cache and starts its expiry sweep. Close stops the sweep.
//
//	payloads := cache.New(30*time.Second, 1024)
//	defer payloads.Close()
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries:    make(map[string]payloadEntry),
		bySource:   make(map[string]map[string]struct{}),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get returns the payload stored under key if it has not expired.
func (c *Cache) Get(key string) (models.RawPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return models.RawPayload{}, false
	}
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(key)
		c.evictions.Add(1)
		c.misses.Add(1)
		return models.RawPayload{}, false
	}
	c.hits.Add(1)
	return e.payload, true
}

// Put stores p under key. When the cache is full, expired entries are dropped
// first, then the entry closest to expiry.
func (c *Cache) Put(key, dataSourceID string, p models.RawPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeLocked(key)
	} else if len(c.entries) >= c.maxEntries {
		if c.expireLocked(c.now()) == 0 {
			c.evictSoonestLocked()
		}
	}

	c.entries[key] = payloadEntry{
		payload:    p,
		dataSource: dataSourceID,
		expiresAt:  c.now().Add(c.ttl),
	}
	keys := c.bySource[dataSourceID]
	if keys == nil {
		keys = make(map[string]struct{})
		c.bySource[dataSourceID] = keys
	}
	keys[key] = struct{}{}
}

// InvalidateDataSource drops every payload fetched from dataSourceID and
// returns how many were removed. The current instance uses the empty id.
func (c *Cache) InvalidateDataSource(dataSourceID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.bySource[dataSourceID]
	for key := range keys {
		delete(c.entries, key)
	}
	delete(c.bySource, dataSourceID)
	return len(keys)
}

// Purge drops every payload and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]payloadEntry)
	c.bySource = make(map[string]map[string]struct{})
	return n
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	return Stats{
		Entries:   n,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Close stops the expiry sweep. Lookups keep working.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.expireLocked(c.now())
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// expireLocked removes entries expired at now and returns the count.
func (c *Cache) expireLocked(now time.Time) int {
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(key)
			removed++
		}
	}
	c.evictions.Add(int64(removed))
	return removed
}

func (c *Cache) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for key, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = key, e.expiresAt
		}
	}
	if victim != "" {
		c.removeLocked(victim)
		c.evictions.Add(1)
	}
}

func (c *Cache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	if keys := c.bySource[e.dataSource]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.bySource, e.dataSource)
		}
	}
}

// GenerateKey hashes JSON-serializable params into "namespace:<32 hex>".
// Params that cannot be marshaled fall back to their %v form.
func GenerateKey(namespace string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", namespace, params)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", namespace, sum[:16])
}
