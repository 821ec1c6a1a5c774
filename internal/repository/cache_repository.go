package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// cacheEnvelope is the stored shape of one cache entry: an opaque payload
// plus the moment it was written. Entries carry no TTL; staleness is
// surfaced through the timestamp, never enforced.
type cacheEnvelope struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CacheRepository persists computed statistics documents in Redis, keyed by
// string. A nil client is a supported degraded mode: reads miss and writes
// are dropped, so every request recomputes.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger, now: time.Now}
}

// Get retrieves the entry for key, unmarshalling its payload into dest and
// returning the entry's timestamp. ErrCacheMiss when the key is absent or
// the cache is in degraded mode.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) (time.Time, error) {
	if r.client == nil {
		return time.Time{}, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, appErrors.ErrCacheMiss
		}
		return time.Time{}, fmt.Errorf("redis get %s: %w", key, err)
	}

	var envelope cacheEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return time.Time{}, fmt.Errorf("unmarshal cache entry %s: %w", key, err)
	}
	if dest != nil {
		if err := json.Unmarshal(envelope.Data, dest); err != nil {
			return time.Time{}, fmt.Errorf("unmarshal cache payload %s: %w", key, err)
		}
	}

	return envelope.UpdatedAt, nil
}

// Set upserts the entry for key, overwriting any previous payload and
// advancing the timestamp. In degraded mode the write is dropped but the
// fresh timestamp is still returned so responses carry a meaningful
// cachedAt.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}) (time.Time, error) {
	ts := r.now().UTC()

	if r.client == nil {
		return ts, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal cache payload %s: %w", key, err)
	}
	raw, err := json.Marshal(cacheEnvelope{Data: data, UpdatedAt: ts})
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal cache entry %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return time.Time{}, fmt.Errorf("redis set %s: %w", key, err)
	}

	return ts, nil
}

// LastUpdated returns the timestamp of the entry for key, or nil when no
// entry exists.
func (r *CacheRepository) LastUpdated(ctx context.Context, key string) (*time.Time, error) {
	ts, err := r.Get(ctx, key, nil)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &ts, nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
