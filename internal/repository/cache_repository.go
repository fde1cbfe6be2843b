package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

// DefaultQueryNamespace prefixes every key the roster query cache writes.
const DefaultQueryNamespace = "roster:query:"

const purgeBatchSize = 100

// QueryCacheRepository stores JSON-encoded roster query results in Redis.
// Keys and patterns passed in are relative to the namespace, so a purge can
// never reach keys outside it. A nil client turns every read into a miss and
// every write into a no-op.
type QueryCacheRepository struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewQueryCacheRepository constructs the repository. An empty namespace uses
// DefaultQueryNamespace.
func NewQueryCacheRepository(client *redis.Client, namespace string, logger *zap.Logger) *QueryCacheRepository {
	if namespace == "" {
		namespace = DefaultQueryNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryCacheRepository{client: client, namespace: namespace, logger: logger}
}

func (r *QueryCacheRepository) key(relative string) string {
	return r.namespace + relative
}

// Get loads the entry into dest. Missing and undecodable entries are both
// reported as appErrors.ErrCacheMiss; undecodable ones are dropped.
func (r *QueryCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	full := r.key(key)
	raw, err := r.client.Get(ctx, full).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", full, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("dropping undecodable query cache entry", zap.String("key", full), zap.Error(err))
		if delErr := r.client.Del(ctx, full).Err(); delErr != nil {
			return fmt.Errorf("redis delete %s: %w", full, delErr)
		}
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value under key for ttl.
func (r *QueryCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal query cache value for %s: %w", key, err)
	}

	full := r.key(key)
	if err := r.client.Set(ctx, full, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", full, err)
	}
	return nil
}

// Purge unlinks the entries matching pattern inside the namespace and
// returns how many were removed. An empty pattern purges the namespace.
func (r *QueryCacheRepository) Purge(ctx context.Context, pattern string) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	if pattern == "" {
		pattern = "*"
	}
	match := r.key(pattern)

	removed := 0
	batch := make([]string, 0, purgeBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis unlink under %s: %w", match, err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	iter := r.client.Scan(ctx, 0, match, purgeBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatchSize {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan %s: %w", match, err)
	}
	if err := flush(); err != nil {
		return removed, err
	}

	r.logger.Debug("query cache purged", zap.String("pattern", match), zap.Int("removed", removed))
	return removed, nil
}

// Close releases the Redis connection if present.
func (r *QueryCacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
