package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const reportNS = "flexidesk:v1:report"

// KeyReport names the cache entry for one report kind and query. The query parts
// are hashed so free-form filter values keep keys short and safe.
func KeyReport(kind string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("%s:%s:%s", reportNS, kind, hex.EncodeToString(sum[:12]))
}

// Cache holds rendered analytics reports as JSON. Concurrent misses on one key
// share a single build.
type Cache struct {
	rdb    *redis.Client
	builds singleflight.Group
}

// NewCache returns a report cache backed by client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// Report returns the report stored under key, building and storing it with build
// on a miss. Redis being unreachable or holding an unreadable entry only costs a
// rebuild; build errors are returned and nothing is stored.
func Report[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, build func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if rep, ok := lookup[T](ctx, c, key); ok {
		return rep, nil
	}

	v, err, _ := c.builds.Do(key, func() (any, error) {
		if rep, ok := lookup[T](ctx, c, key); ok {
			return rep, nil
		}
		rep, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, rep, ttl)
		return rep, nil
	})
	if err != nil {
		return zero, err
	}
	rep, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("report cache: key %s holds %T", key, v)
	}
	return rep, nil
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var rep T
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return rep, false
	}
	if err := json.Unmarshal(raw, &rep); err != nil {
		return rep, false
	}
	return rep, true
}

func (c *Cache) store(ctx context.Context, key string, rep any, ttl time.Duration) {
	raw, err := json.Marshal(rep)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, raw, ttl).Err()
}
