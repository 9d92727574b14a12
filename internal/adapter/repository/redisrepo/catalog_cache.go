package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/domain"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// CatalogCache keeps a short-lived copy of each event's tier list in Redis.
// Snapshots may be stale; the booking repository rechecks availability at
// commit time.
type CatalogCache struct {
	next ports.TierCatalog
	rdb  *redis.Client
	ttl  time.Duration
	log  *slog.Logger
}

func NewCatalogCache(next ports.TierCatalog, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CatalogCache {
	return &CatalogCache{next: next, rdb: rdb, ttl: ttl, log: log}
}

func catalogKey(eventID string) string {
	return fmt.Sprintf("tiers:%s", eventID)
}

func (c *CatalogCache) ListByEvent(ctx context.Context, eventID string) ([]domain.TicketTier, error) {
	key := catalogKey(eventID)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var tiers []domain.TicketTier
		if jsonErr := json.Unmarshal(cached, &tiers); jsonErr == nil {
			return tiers, nil
		}
		c.log.WarnContext(ctx, "discarding unreadable catalog cache entry", "event_id", eventID)
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "catalog cache read failed", "event_id", eventID, "error", err)
		return c.next.ListByEvent(ctx, eventID)
	}

	tiers, err := c.next.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if c.ttl <= 0 || len(tiers) == 0 {
		return tiers, nil
	}

	payload, err := json.Marshal(tiers)
	if err != nil {
		return tiers, nil
	}

	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "catalog cache write failed", "event_id", eventID, "error", err)
	}

	return tiers, nil
}

func (c *CatalogCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.rdb.Del(ctx, catalogKey(eventID)).Err(); err != nil {
		return fmt.Errorf("invalidate catalog %s: %w", eventID, err)
	}

	return nil
}
