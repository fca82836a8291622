// Package boltstore persists VSS items in a single bbolt file. Each store id
// gets a nested bucket under the items bucket; values are the item version
// as four big-endian bytes followed by the ciphertext.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/store"
	bolt "go.etcd.io/bbolt"
)

var itemsBucket = []byte("items")

const versionWidth = 4

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(itemsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltstore: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutItems(ctx context.Context, storeID string, items []core.EncryptedItem, policy store.VersionPolicy) error {
	if err := store.ValidateStoreID(storeID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	// Returning an error from Update rolls back every write in the batch.
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(itemsBucket).CreateBucketIfNotExists([]byte(storeID))
		if err != nil {
			return fmt.Errorf("boltstore: store bucket: %w", err)
		}
		for _, item := range items {
			stored, exists := decodeVersion(bucket.Get([]byte(item.Key)))
			write, err := policy.Decide(stored, exists, item.Version)
			if err != nil {
				return err
			}
			if !write {
				continue
			}
			if err := bucket.Put([]byte(item.Key), encodeValue(item)); err != nil {
				return fmt.Errorf("boltstore: put %q: %w", item.Key, err)
			}
		}
		return nil
	})
}

func (s *Store) GetItem(ctx context.Context, storeID string, key string) (core.EncryptedItem, error) {
	if err := ctx.Err(); err != nil {
		return core.EncryptedItem{}, err
	}
	var out core.EncryptedItem
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(itemsBucket).Bucket([]byte(storeID))
		if bucket == nil {
			return store.ErrNotFound
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return store.ErrNotFound
		}
		item, err := decodeValue(key, raw)
		if err != nil {
			return err
		}
		out = item
		return nil
	})
	return out, err
}

func (s *Store) ListKeyVersions(ctx context.Context, storeID string, prefix *string) ([]core.KeyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []core.KeyVersion{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(itemsBucket).Bucket([]byte(storeID))
		if bucket == nil {
			return nil
		}
		var seek []byte
		if prefix != nil {
			seek = []byte(*prefix)
		}
		cursor := bucket.Cursor()
		// bbolt keeps keys in byte order, so the listing is already sorted.
		for k, v := cursor.Seek(seek); k != nil; k, v = cursor.Next() {
			if seek != nil && !bytes.HasPrefix(k, seek) {
				break
			}
			version, ok := decodeVersion(v)
			if !ok {
				return fmt.Errorf("boltstore: corrupt record for key %q", k)
			}
			out = append(out, core.KeyVersion{Key: string(k), Version: version})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeValue(item core.EncryptedItem) []byte {
	buf := make([]byte, versionWidth+len(item.Value))
	binary.BigEndian.PutUint32(buf, item.Version)
	copy(buf[versionWidth:], item.Value)
	return buf
}

func decodeVersion(raw []byte) (uint32, bool) {
	if len(raw) < versionWidth {
		return 0, false
	}
	return binary.BigEndian.Uint32(raw[:versionWidth]), true
}

func decodeValue(key string, raw []byte) (core.EncryptedItem, error) {
	version, ok := decodeVersion(raw)
	if !ok {
		return core.EncryptedItem{}, fmt.Errorf("boltstore: corrupt record for key %q", key)
	}
	// bbolt slices are only valid inside the transaction.
	value := append(core.Ciphertext(nil), raw[versionWidth:]...)
	return core.EncryptedItem{Key: key, Value: value, Version: version}, nil
}
