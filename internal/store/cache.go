package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes full-table reads for the list/browse paths, which tolerate
// staleness up to the TTL. The reservation commit path must read through the
// underlying Tabular directly, never through the cache.
type Cache struct {
	src        Tabular
	defaultTTL time.Duration
	ttls       map[string]time.Duration

	rdb      *redis.Client
	redisTTL time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry

	now func() time.Time
}

type cacheEntry struct {
	rows    [][]string
	fetched time.Time
}

// NewCache wraps src with a read cache using defaultTTL for every table.
func NewCache(src Tabular, defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = 20 * time.Second
	}
	return &Cache{
		src:        src,
		defaultTTL: defaultTTL,
		ttls:       make(map[string]time.Duration),
		entries:    make(map[string]cacheEntry),
		now:        time.Now,
	}
}

// SetTTL overrides the TTL for one table.
func (c *Cache) SetTTL(table string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[table] = ttl
}

// UseRedis mirrors cached tables in Redis so a restarted process can serve
// list views without an immediate full-table fetch. Redis errors degrade to
// a live read.
func (c *Cache) UseRedis(rdb *redis.Client, ttl time.Duration) {
	c.rdb = rdb
	c.redisTTL = ttl
}

// GetAllRows returns the table rows and whether they came from the cache.
// The result is the caller's copy; mutating it cannot corrupt the cached
// entry shared with other callers.
func (c *Cache) GetAllRows(ctx context.Context, table string) ([][]string, bool, error) {
	ttl := c.ttlFor(table)

	c.mu.Lock()
	entry, ok := c.entries[table]
	fresh := ok && c.now().Sub(entry.fetched) < ttl
	c.mu.Unlock()
	if fresh {
		return cloneRows(entry.rows), true, nil
	}

	if rows, ok := c.readRedis(ctx, table); ok {
		c.storeLocal(table, rows)
		return cloneRows(rows), true, nil
	}

	rows, err := c.src.GetAllRows(ctx, table)
	if err != nil {
		// A short outage is absorbed by whatever we still hold, stale or not.
		if ok {
			return cloneRows(entry.rows), true, nil
		}
		return nil, false, err
	}

	c.storeLocal(table, rows)
	c.writeRedis(ctx, table, rows)
	return cloneRows(rows), false, nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Invalidate drops a table from the cache, local and Redis.
func (c *Cache) Invalidate(ctx context.Context, table string) {
	c.mu.Lock()
	delete(c.entries, table)
	c.mu.Unlock()
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, c.redisKey(table)).Err()
	}
}

func (c *Cache) ttlFor(table string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl, ok := c.ttls[table]; ok && ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

func (c *Cache) storeLocal(table string, rows [][]string) {
	c.mu.Lock()
	c.entries[table] = cacheEntry{rows: rows, fetched: c.now()}
	c.mu.Unlock()
}

func (c *Cache) readRedis(ctx context.Context, table string) ([][]string, bool) {
	if c.rdb == nil || c.redisTTL <= 0 {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, c.redisKey(table)).Result()
	if err != nil {
		return nil, false
	}
	var rows [][]string
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (c *Cache) writeRedis(ctx context.Context, table string, rows [][]string) {
	if c.rdb == nil || c.redisTTL <= 0 {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, c.redisKey(table), data, c.redisTTL).Err()
}

func (c *Cache) redisKey(table string) string {
	return "tablecache:" + table
}
