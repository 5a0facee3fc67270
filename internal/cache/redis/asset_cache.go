package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/redis/go-redis/v9"
)

const assetTTL = 30 * time.Second

// AssetCache implements domain.AssetCache using Redis hashes with JSON-
// serialized Asset data. The TTL is short because the current bid changes
// with every accepted bid; the bid service invalidates on accept as well, so
// the TTL only bounds staleness for readers on other instances.
//
// Key schema:
//
//	asset:{id} - hash with field "data" containing JSON
type AssetCache struct {
	rdb *redis.Client
}

// NewAssetCache creates an AssetCache backed by the given Client.
func NewAssetCache(c *Client) *AssetCache {
	return &AssetCache{rdb: c.Underlying()}
}

func assetKey(id string) string { return "asset:" + id }

// Set stores an Asset in the cache with a short TTL.
func (ac *AssetCache) Set(ctx context.Context, asset domain.Asset) error {
	data, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("redis: marshal asset %s: %w", asset.ID, err)
	}

	key := assetKey(asset.ID)

	pipe := ac.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, assetTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set asset %s: %w", asset.ID, err)
	}
	return nil
}

// Get retrieves an Asset by its ID from the cache.
// It returns domain.ErrNotFound when the key does not exist.
func (ac *AssetCache) Get(ctx context.Context, id string) (domain.Asset, error) {
	data, err := ac.rdb.HGet(ctx, assetKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Asset{}, domain.ErrNotFound
		}
		return domain.Asset{}, fmt.Errorf("redis: get asset %s: %w", id, err)
	}

	var asset domain.Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return domain.Asset{}, fmt.Errorf("redis: unmarshal asset %s: %w", id, err)
	}
	return asset, nil
}

// Invalidate removes an Asset from the cache.
func (ac *AssetCache) Invalidate(ctx context.Context, id string) error {
	if err := ac.rdb.Del(ctx, assetKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate asset %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AssetCache = (*AssetCache)(nil)
