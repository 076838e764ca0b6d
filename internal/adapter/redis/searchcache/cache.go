package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
	"gitlab.com/newsinsight.net/internal/core/ports/secondary"
	"gitlab.com/newsinsight.net/internal/domain"
)

const searchKeyPrefix = "newsinsight:search:"

var _ secondary.ArticleSearcher = (*Cache)(nil)

// Cache decorates an ArticleSearcher with a Redis cache of successful responses.
// Redis failures are logged and the call falls through to the wrapped searcher.
type Cache struct {
	redisClient *redis.Client
	next        secondary.ArticleSearcher
	ttl         time.Duration
	logger      primary.Logger
}

// NewCache creates a search cache in front of next
func NewCache(redisClient *redis.Client, next secondary.ArticleSearcher, ttl time.Duration, logger primary.Logger) *Cache {
	return &Cache{
		redisClient: redisClient,
		next:        next,
		ttl:         ttl,
		logger:      logger,
	}
}

// Search serves a cached body when present, otherwise calls the wrapped searcher and caches a 200
func (c *Cache) Search(ctx context.Context, q domain.SearchQuery) (*domain.RawResponse, error) {
	key, err := Key(q)
	if err != nil {
		return nil, err
	}

	body, err := c.redisClient.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.logger.Debug("Search cache hit", "key", key)
		return &domain.RawResponse{Status: http.StatusOK, Body: body}, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Failed to read search cache", "key", key, "error", err)
	}

	resp, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusOK {
		if err := c.redisClient.Set(ctx, key, resp.Body, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to write search cache", "key", key, "error", err)
		}
	}
	return resp, nil
}

// Key derives the cache key of a normalised query
func Key(q domain.SearchQuery) (string, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("failed to marshal search query: %w", err)
	}
	sum := sha256.Sum256(raw)
	return searchKeyPrefix + hex.EncodeToString(sum[:]), nil
}

// Ping checks that Redis is reachable
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}
