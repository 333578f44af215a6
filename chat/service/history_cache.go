package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/juicy-forest/server/chat/models"
	"github.com/juicy-forest/server/pkg/logger"
	"github.com/juicy-forest/server/shared/redis"
)

// HistoryCache caches a garden's full message history for the initial-load
// path. Misses and redis failures fall through to the database.
type HistoryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewHistoryCache creates a history cache over a redis client
func NewHistoryCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *HistoryCache {
	return &HistoryCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get returns the cached history for a garden, if present
func (c *HistoryCache) Get(ctx context.Context, gardenID uint) ([]models.Message, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(gardenID))
	if err != nil {
		if !redis.IsNil(err) {
			c.log.Warn("history cache read failed", "garden_id", gardenID, "error", err.Error())
		}
		return nil, false
	}

	var messages []models.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		c.log.Warn("history cache entry corrupt, dropping", "garden_id", gardenID, "error", err.Error())
		_ = c.client.Del(ctx, c.key(gardenID))
		return nil, false
	}

	return messages, true
}

// Set stores a garden's history
func (c *HistoryCache) Set(ctx context.Context, gardenID uint, messages []models.Message) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, c.key(gardenID), raw, c.ttl); err != nil {
		c.log.Warn("history cache write failed", "garden_id", gardenID, "error", err.Error())
	}
}

// Invalidate drops a garden's cached history
func (c *HistoryCache) Invalidate(ctx context.Context, gardenID uint) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, c.key(gardenID)); err != nil {
		c.log.Warn("history cache invalidation failed", "garden_id", gardenID, "error", err.Error())
	}
}

func (c *HistoryCache) key(gardenID uint) string {
	return fmt.Sprintf("chat:history:garden:%d", gardenID)
}
