// Package cache fronts the catalog store with Redis so replicas share one
// decoded snapshot instead of each hitting the backend.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/storage"
)

const (
	// CatalogKey holds the JSON catalog snapshot.
	CatalogKey = "storefront:catalog:v1"

	DefaultTTL = 10 * time.Minute
)

// KV is the subset of the Redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CatalogCache is a read-through cache around a storage.CatalogStore.
// Redis failures degrade to the underlying store.
type CatalogCache struct {
	next storage.CatalogStore
	kv   KV
	ttl  time.Duration
	log  *logging.Logger
}

var _ storage.CatalogStore = (*CatalogCache)(nil)

// NewCatalogCache wraps next. A non-positive ttl selects DefaultTTL.
func NewCatalogCache(next storage.CatalogStore, kv KV, ttl time.Duration, log *logging.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logging.NewDiscard()
	}
	return &CatalogCache{next: next, kv: kv, ttl: ttl, log: log}
}

func (c *CatalogCache) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	raw, err := c.kv.Get(ctx, CatalogKey).Bytes()
	switch {
	case err == nil:
		var snap catalog.Snapshot
		if jerr := json.Unmarshal(raw, &snap); jerr == nil {
			if cat, cerr := catalog.New(snap); cerr == nil {
				return cat, nil
			}
		}
		c.log.WithContext(ctx).Warn("discarding undecodable cached catalog")
	case stderrors.Is(err, redis.Nil):
	default:
		c.log.WithContext(ctx).WithError(err).Warn("catalog cache read failed")
	}

	cat, err := c.next.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if raw, jerr := json.Marshal(cat.Snapshot()); jerr == nil {
		if serr := c.kv.Set(ctx, CatalogKey, raw, c.ttl).Err(); serr != nil {
			c.log.WithContext(ctx).WithError(serr).Warn("catalog cache write failed")
		}
	}
	return cat, nil
}

// SaveCatalog writes through and invalidates the cached snapshot.
func (c *CatalogCache) SaveCatalog(ctx context.Context, snap catalog.Snapshot) error {
	if err := c.next.SaveCatalog(ctx, snap); err != nil {
		return err
	}
	if err := c.kv.Del(ctx, CatalogKey).Err(); err != nil {
		c.log.WithContext(ctx).WithError(err).Warn("catalog cache invalidation failed")
	}
	return nil
}
