/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache is a Redis read-through cache fronting the expensive
// aggregate Query Surface reads (get_stats, list_skills_filtered), guarded
// against stampedes with singleflight and invalidated on any mutation that
// could change their result.
package cache

import (
	"context"
	"encoding/json"
	"time"

	faster "github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache wraps a redis.Client with a singleflight group so concurrent
// cache-miss recomputations of the same key collapse into one call to fn.
type Cache struct {
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// New constructs a Cache against addr/db with entries expiring after ttl.
func New(addr string, db int, ttl time.Duration) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ttl: ttl,
	}
}

// NewWithClient wraps an already-constructed *redis.Client, used by tests
// against alicebob/miniredis/v2.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// GetOrCompute returns the cached JSON value for key, or calls fn to
// compute, cache, and return it on a miss. Concurrent callers for the same
// key share one fn invocation via singleflight.
func (c *Cache) GetOrCompute(ctx context.Context, key string, dst any, fn func() (any, error)) error {
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		return json.Unmarshal(raw, dst)
	} else if err != redis.Nil {
		return faster.Wrap(err, "reading cache key "+key)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fn()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, faster.Wrap(err, "encoding cache value for "+key)
		}
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			return nil, faster.Wrap(err, "writing cache key "+key)
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

// Invalidate deletes key, called after any mutation that could change the
// cached result (e.g. AddSkill, SetSkillFiles, AppendAnalysis).
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return faster.Wrap(err, "invalidating cache key "+key)
	}
	return nil
}

// InvalidatePrefix deletes every key the caller knows shares the given
// prefix; list_skills_filtered's cache keys are built as
// "list:<sort>:<category>:<search>:<limit>:<offset>" so a blanket "list:" invalidation on
// any skill mutation is simpler and safer than tracking every page.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return faster.Wrap(err, "invalidating cache prefix "+prefix)
		}
	}
	return iter.Err()
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

const (
	// KeyStats caches get_stats().
	KeyStats = "stats"
	// ListPrefix prefixes every list_skills_filtered cache key.
	ListPrefix = "list:"
)
