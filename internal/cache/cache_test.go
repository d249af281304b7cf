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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(rdb, time.Minute)
}

func TestGetOrComputeCachesOnMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() (any, error) {
		calls++
		return map[string]int{"total_skills": 42}, nil
	}

	var first map[string]int
	require.NoError(t, c.GetOrCompute(ctx, "stats", &first, compute))
	require.Equal(t, 1, calls)
	require.Equal(t, 42, first["total_skills"])

	var second map[string]int
	require.NoError(t, c.GetOrCompute(ctx, "stats", &second, compute))
	require.Equal(t, 1, calls, "second call should hit the cache, not recompute")
	require.Equal(t, 42, second["total_skills"])
}

func TestInvalidateForcesRecompute(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	var v int
	require.NoError(t, c.GetOrCompute(ctx, "stats", &v, compute))
	require.Equal(t, 1, v)

	require.NoError(t, c.Invalidate(ctx, "stats"))

	require.NoError(t, c.GetOrCompute(ctx, "stats", &v, compute))
	require.Equal(t, 2, v)
}

func TestInvalidatePrefix(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var a, b int
	require.NoError(t, c.GetOrCompute(ctx, "list:name:a", &a, func() (any, error) { return 1, nil }))
	require.NoError(t, c.GetOrCompute(ctx, "list:name:b", &b, func() (any, error) { return 2, nil }))

	require.NoError(t, c.InvalidatePrefix(ctx, ListPrefix))

	calls := 0
	require.NoError(t, c.GetOrCompute(ctx, "list:name:a", &a, func() (any, error) {
		calls++
		return 3, nil
	}))
	require.Equal(t, 1, calls, "invalidated key should recompute")
}
