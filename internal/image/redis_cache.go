package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores processed rasters keyed by input content and target
// geometry, so re-sending the same picture to another badge skips the
// decode/resize pipeline entirely.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache on an existing Redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

// buildKey derives the cache key from the raw input hash plus every
// parameter that changes the output raster.
func (c *RedisCache) buildKey(data []byte, width, height int, fit FitMode) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("glowlink:image:%x:%dx%d:%s", sum[:12], width, height, fit)
}

// Get returns the cached raster for the given input, or ok=false on miss.
func (c *RedisCache) Get(ctx context.Context, data []byte, width, height int, fit FitMode) ([]uint16, bool, error) {
	key := c.buildKey(data, width, height, fit)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s from Redis: %w", key, err)
	}
	if len(raw) != width*height*2 {
		// Stale entry from an incompatible version; treat as a miss.
		return nil, false, nil
	}

	pixels := make([]uint16, width*height)
	for i := range pixels {
		pixels[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return pixels, true, nil
}

// Set stores a processed raster under the input's derived key.
func (c *RedisCache) Set(ctx context.Context, data []byte, width, height int, fit FitMode, pixels []uint16) error {
	key := c.buildKey(data, width, height, fit)

	if err := c.client.Set(ctx, key, RGB565Bytes(pixels), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in Redis: %w", key, err)
	}
	return nil
}
