// Package memorystore keeps VSS items in process memory.
package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/store"
)

type Store struct {
	mu     sync.RWMutex
	stores map[string]map[string]core.EncryptedItem
}

func New() *Store {
	return &Store{stores: map[string]map[string]core.EncryptedItem{}}
}

func (s *Store) PutItems(ctx context.Context, storeID string, items []core.EncryptedItem, policy store.VersionPolicy) error {
	if err := store.ValidateStoreID(storeID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.stores[storeID]
	staged := make(map[string]core.EncryptedItem, len(items))
	for _, item := range items {
		existing, exists := staged[item.Key]
		if !exists {
			existing, exists = current[item.Key]
		}
		write, err := policy.Decide(existing.Version, exists, item.Version)
		if err != nil {
			return err
		}
		if write {
			staged[item.Key] = cloneItem(item)
		}
	}
	if len(staged) == 0 {
		return nil
	}
	if current == nil {
		current = make(map[string]core.EncryptedItem, len(staged))
		s.stores[storeID] = current
	}
	for key, item := range staged {
		current[key] = item
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, storeID string, key string) (core.EncryptedItem, error) {
	if err := ctx.Err(); err != nil {
		return core.EncryptedItem{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.stores[storeID][key]
	if !ok {
		return core.EncryptedItem{}, store.ErrNotFound
	}
	return cloneItem(item), nil
}

func (s *Store) ListKeyVersions(ctx context.Context, storeID string, prefix *string) ([]core.KeyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.KeyVersion, 0, len(s.stores[storeID]))
	for key, item := range s.stores[storeID] {
		if !store.MatchesPrefix(key, prefix) {
			continue
		}
		out = append(out, core.KeyVersion{Key: key, Version: item.Version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Close() error { return nil }

func cloneItem(item core.EncryptedItem) core.EncryptedItem {
	item.Value = append(core.Ciphertext(nil), item.Value...)
	return item
}
