package query

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/internal/index"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/redis"
)

const (
	keyPrefix    = "search:"
	storeTimeout = 2 * time.Second
)

// RedisSink mirrors computed results into Redis so other processes can read
// them. Write failures are logged and otherwise ignored.
type RedisSink struct {
	client *pkgredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisSink(client *pkgredis.Client, ttl time.Duration) *RedisSink {
	return &RedisSink{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (s *RedisSink) Store(key string, exact bool, results []index.PageScore) {
	cacheKey := CacheKey(key, exact)
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.client.SetJSON(ctx, cacheKey, results, s.ttl); err != nil {
		s.logger.Error("cache set failed", "key", cacheKey, "error", err)
		return
	}
	s.logger.Debug("cache set", "query", key, "key", cacheKey, "results", len(results))
}

// Invalidate removes every mirrored result. Results from an earlier index
// are stale once a new one is built.
func (s *RedisSink) Invalidate(ctx context.Context) error {
	deleted, err := s.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	s.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// CacheKey is the Redis key under which the result of a normalised query is
// mirrored.
func CacheKey(key string, exact bool) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|exact=%t", key, exact)))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
