package sqlstore

import (
	"time"

	"github.com/goliatone/go-vss/core"
	"github.com/uptrace/bun"
)

type itemRecord struct {
	bun.BaseModel `bun:"table:vss_items,alias:vi"`

	ID        string    `bun:"id,pk"`
	StoreID   string    `bun:"store_id,notnull"`
	Key       string    `bun:"item_key,notnull"`
	Value     []byte    `bun:"value,notnull"`
	Version   int64     `bun:"version,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newItemRecord(storeID string, item core.EncryptedItem, now time.Time) *itemRecord {
	return &itemRecord{
		StoreID:   storeID,
		Key:       item.Key,
		Value:     cloneBytes(item.Value),
		Version:   int64(item.Version),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *itemRecord) toDomain() core.EncryptedItem {
	if r == nil {
		return core.EncryptedItem{}
	}
	return core.EncryptedItem{
		Key:     r.Key,
		Value:   core.Ciphertext(cloneBytes(r.Value)),
		Version: uint32(r.Version),
	}
}

// cloneBytes never returns nil so empty ciphertext satisfies NOT NULL.
func cloneBytes(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
