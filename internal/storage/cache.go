package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/core"
)

// cacheTTL bounds how long a terminal prediction may be served from redis.
const cacheTTL = 5 * time.Minute

// Cache is a best-effort redis read cache for terminal predictions. Only
// COMPLETED and ERROR records are cached: non-terminal records change under
// the caller's feet while workers and webhooks settle them. A nil or
// unavailable client degrades to a no-op.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache connects to redis. Connection failure is logged and tolerated;
// the returned Cache simply stays cold.
func NewCache(cfg config.RedisConfig, logger *slog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, prediction read cache disabled", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return &Cache{logger: logger}
	}

	return &Cache{client: client, logger: logger}
}

// Available reports whether the cache has a live redis connection.
func (c *Cache) Available() bool { return c != nil && c.client != nil }

// Close releases the redis connection.
func (c *Cache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.client.Close()
}

func cacheKey(id string) string { return fmt.Sprintf("prediction:%s", id) }

// GetPrediction returns a cached terminal prediction, or (nil, false) on any
// miss or cache error.
func (c *Cache) GetPrediction(ctx context.Context, id string) (*core.Prediction, bool) {
	if !c.Available() {
		return nil, false
	}
	val, err := c.client.Get(ctx, cacheKey(id)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache read failed", "id", id, "error", err)
		return nil, false
	}

	var p core.Prediction
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, false
	}
	if !p.Status.Terminal() {
		return nil, false
	}
	return &p, true
}

// PutPrediction stores a prediction if it is terminal. Failures are logged
// and ignored.
func (c *Cache) PutPrediction(ctx context.Context, p *core.Prediction) {
	if !c.Available() || p == nil || !p.Status.Terminal() {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(p.ID), data, cacheTTL).Err(); err != nil {
		c.logger.Warn("cache write failed", "id", p.ID, "error", err)
	}
}

// Invalidate drops a cached prediction. Settlement paths call this because a
// retry can move a record back to PROCESSING after a terminal result was
// cached, and reads must not keep serving the old terminal state.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	if !c.Available() {
		return
	}
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "id", id, "error", err)
	}
}
