// Package cachedstore puts a read-through cache in front of any item store.
package cachedstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/store"
)

const itemCacheKeyPrefix = "go-vss::item::v1"

// Store caches GetItem results and evicts every key a PutItems batch
// touches. Listings always go to the base store. Writes exclude reads so a
// fetch that started before a write cannot cache the old item after it.
type Store struct {
	mu    sync.RWMutex
	base  store.ItemStore
	cache repositorycache.CacheService
}

func New(base store.ItemStore, cacheService repositorycache.CacheService) (*Store, error) {
	if base == nil {
		return nil, fmt.Errorf("cachedstore: base item store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("cachedstore: cache service is required")
	}
	return &Store{base: base, cache: cacheService}, nil
}

// NewWithTTL builds an in-process cache service with the given TTL.
func NewWithTTL(base store.ItemStore, ttl time.Duration) (*Store, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	cacheService, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, fmt.Errorf("cachedstore: new cache service: %w", err)
	}
	return New(base, cacheService)
}

// ItemCacheKey is go-vss::item::v1::<store_id>::<key>, each segment path
// escaped.
func ItemCacheKey(storeID string, key string) (string, error) {
	if err := store.ValidateStoreID(storeID); err != nil {
		return "", err
	}
	return strings.Join([]string{
		itemCacheKeyPrefix,
		url.PathEscape(strings.TrimSpace(storeID)),
		url.PathEscape(key),
	}, "::"), nil
}

func (s *Store) PutItems(ctx context.Context, storeID string, items []core.EncryptedItem, policy store.VersionPolicy) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("cachedstore: store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.base.PutItems(ctx, storeID, items, policy); err != nil {
		return err
	}
	for _, item := range items {
		cacheKey, err := ItemCacheKey(storeID, item.Key)
		if err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, storeID string, key string) (core.EncryptedItem, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.EncryptedItem{}, fmt.Errorf("cachedstore: store is not configured")
	}
	cacheKey, err := ItemCacheKey(storeID, key)
	if err != nil {
		return core.EncryptedItem{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.EncryptedItem, error) {
		fetched, fetchErr := s.base.GetItem(ctx, storeID, key)
		if fetchErr != nil {
			return core.EncryptedItem{}, fetchErr
		}
		return cloneItem(fetched), nil
	})
	if err != nil {
		return core.EncryptedItem{}, err
	}
	return cloneItem(item), nil
}

func (s *Store) ListKeyVersions(ctx context.Context, storeID string, prefix *string) ([]core.KeyVersion, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("cachedstore: store is not configured")
	}
	return s.base.ListKeyVersions(ctx, storeID, prefix)
}

func (s *Store) Close() error {
	if s == nil || s.base == nil {
		return nil
	}
	return s.base.Close()
}

func cloneItem(item core.EncryptedItem) core.EncryptedItem {
	cloned := item
	cloned.Value = append(core.Ciphertext{}, item.Value...)
	return cloned
}

var _ store.ItemStore = (*Store)(nil)
