// Package sqlstore persists VSS items through bun, on Postgres or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ItemStore struct {
	db   *bun.DB
	repo repository.Repository[*itemRecord]
	now  func() time.Time
}

func NewItemStore(db *bun.DB) (*ItemStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*itemRecord](db, itemHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid item repository wiring: %w", err)
		}
	}
	return &ItemStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *ItemStore) PutItems(ctx context.Context, storeID string, items []core.EncryptedItem, policy store.VersionPolicy) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: item store is not configured")
	}
	if err := store.ValidateStoreID(storeID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	now := s.now()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range items {
			record, err := findItemTx(ctx, tx, storeID, item.Key)
			if err != nil {
				return err
			}
			stored := uint32(0)
			if record != nil {
				stored = uint32(record.Version)
			}
			write, err := policy.Decide(stored, record != nil, item.Version)
			if err != nil {
				return err
			}
			if !write {
				continue
			}

			if record == nil {
				record = newItemRecord(storeID, item, now)
				record.ID = uuid.NewString()
				if _, err := s.repo.CreateTx(ctx, tx, record); err != nil {
					if isUniqueViolation(err) {
						return fmt.Errorf("sqlstore: concurrent insert for key %q: %w", item.Key, err)
					}
					return err
				}
				continue
			}

			record.Value = cloneBytes(item.Value)
			record.Version = int64(item.Version)
			record.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ItemStore) GetItem(ctx context.Context, storeID string, key string) (core.EncryptedItem, error) {
	if s == nil || s.repo == nil {
		return core.EncryptedItem{}, fmt.Errorf("sqlstore: item store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("store_id", "=", storeID),
		repository.SelectBy("item_key", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.EncryptedItem{}, err
	}
	if len(records) == 0 {
		return core.EncryptedItem{}, store.ErrNotFound
	}
	return records[0].toDomain(), nil
}

func (s *ItemStore) ListKeyVersions(ctx context.Context, storeID string, prefix *string) ([]core.KeyVersion, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: item store is not configured")
	}
	records := []*itemRecord{}
	query := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.store_id = ?", storeID).
		OrderExpr("?TableAlias.item_key ASC")
	if prefix != nil && *prefix != "" {
		query = query.Where(`?TableAlias.item_key LIKE ? ESCAPE '!'`, escapeLike(*prefix)+"%")
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	// LIKE is case insensitive on SQLite and collation order varies on
	// Postgres, so the final filter and order are applied on raw bytes.
	out := make([]core.KeyVersion, 0, len(records))
	for _, record := range records {
		if !store.MatchesPrefix(record.Key, prefix) {
			continue
		}
		out = append(out, core.KeyVersion{Key: record.Key, Version: uint32(record.Version)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op; the bun database belongs to the persistence client.
func (s *ItemStore) Close() error { return nil }

func findItemTx(ctx context.Context, tx bun.Tx, storeID string, key string) (*itemRecord, error) {
	record := &itemRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.store_id = ?", storeID).
		Where("?TableAlias.item_key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return replacer.Replace(value)
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
