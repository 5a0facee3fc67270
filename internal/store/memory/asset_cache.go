package memory

import (
	"context"
	"sync"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
)

const assetCacheTTL = 30 * time.Second

// AssetCache is an in-process implementation of domain.AssetCache used by
// the memory storage driver. Entries expire after a short TTL the same way
// the Redis cache does; callers always fall back to the store on a miss.
type AssetCache struct {
	mu      sync.RWMutex
	entries map[string]cachedAsset
}

type cachedAsset struct {
	asset     domain.Asset
	expiresAt time.Time
}

// NewAssetCache creates an empty in-memory asset cache.
func NewAssetCache() *AssetCache {
	return &AssetCache{entries: make(map[string]cachedAsset)}
}

// Set caches an asset snapshot.
func (c *AssetCache) Set(_ context.Context, asset domain.Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[asset.ID] = cachedAsset{
		asset:     asset,
		expiresAt: time.Now().Add(assetCacheTTL),
	}
	return nil
}

// Get returns a cached asset or ErrNotFound on a miss or expired entry.
func (c *AssetCache) Get(_ context.Context, id string) (domain.Asset, error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return domain.Asset{}, domain.ErrNotFound
	}
	return entry.asset, nil
}

// Invalidate drops the cached entry for the given asset.
func (c *AssetCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
	return nil
}

var _ domain.AssetCache = (*AssetCache)(nil)
