package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DylanCerv/sublimacion/internal/domain"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

const snapshotKey = "catalog:snapshot"

// ErrCacheMiss is returned when no snapshot has been cached yet.
var ErrCacheMiss = errors.New("catalog snapshot cache miss")

// cachedCatalog is the stored form of a catalog.
type cachedCatalog struct {
	SavedAt time.Time       `json:"saved_at"`
	Catalog *domain.Catalog `json:"catalog"`
}

// SnapshotCache keeps the last catalog loaded from the primary source in
// Redis, so a restart during an outage can still serve real data.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache creates a Redis-backed snapshot cache. A zero ttl keeps
// the entry until it is overwritten.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Save stores cat as the last known good catalog.
func (c *SnapshotCache) Save(ctx context.Context, cat *domain.Catalog) error {
	data, err := json.Marshal(cachedCatalog{SavedAt: time.Now().UTC(), Catalog: cat})
	if err != nil {
		return fmt.Errorf("marshal catalog snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set catalog snapshot: %w", err)
	}
	return nil
}

// LoadCatalog implements catalog.Source over the cached snapshot.
func (c *SnapshotCache) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, apperrors.SourceUnavailable(fmt.Errorf("redis get catalog snapshot: %w", err))
	}

	var cached cachedCatalog
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("unmarshal catalog snapshot: %w", err)
	}
	if cached.Catalog == nil {
		return nil, ErrCacheMiss
	}
	return cached.Catalog, nil
}

// Ping checks the Redis connection.
func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
