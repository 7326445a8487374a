package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	goredis "github.com/redis/go-redis/v9"

	"starmap-server/internal/shared/redis"
	"starmap-server/internal/sky"
)

// EntryCache memoises entries fetched from the remote service so repeated
// lookups of the same catalog number do not hit VizieR again.
type EntryCache interface {
	Get(ctx context.Context, number int) (sky.CrossMatchEntry, bool, error)
	Put(ctx context.Context, entry sky.CrossMatchEntry) error
}

type LRUCache struct {
	lru *expirable.LRU[int, sky.CrossMatchEntry]
}

func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 1024
	}
	return &LRUCache{lru: expirable.NewLRU[int, sky.CrossMatchEntry](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, number int) (sky.CrossMatchEntry, bool, error) {
	entry, ok := c.lru.Get(number)
	return entry, ok, nil
}

func (c *LRUCache) Put(_ context.Context, entry sky.CrossMatchEntry) error {
	c.lru.Add(entry.Number, entry)
	return nil
}

const redisKeyPrefix = "starmap:sao:"

// RedisCache shares memoised entries between server replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, number int) (sky.CrossMatchEntry, bool, error) {
	data, err := c.client.Get(ctx, redisKey(number)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return sky.CrossMatchEntry{}, false, nil
		}
		return sky.CrossMatchEntry{}, false, fmt.Errorf("failed to read cached entry: %w", err)
	}

	var entry sky.CrossMatchEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return sky.CrossMatchEntry{}, false, fmt.Errorf("failed to decode cached entry: %w", err)
	}
	return entry, true, nil
}

func (c *RedisCache) Put(ctx context.Context, entry sky.CrossMatchEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(entry.Number), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache entry: %w", err)
	}
	return nil
}

func redisKey(number int) string {
	return redisKeyPrefix + strconv.Itoa(number)
}
