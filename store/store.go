// Package store defines the persistence contract behind the reference VSS
// server. Stores only ever see ciphertext.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-vss/core"
)

var (
	ErrNotFound        = errors.New("store: item not found")
	ErrVersionConflict = errors.New("store: stale item version")
)

type ItemStore interface {
	// PutItems applies items atomically under policy. Items later in the
	// batch win over earlier ones with the same key.
	PutItems(ctx context.Context, storeID string, items []core.EncryptedItem, policy VersionPolicy) error
	GetItem(ctx context.Context, storeID string, key string) (core.EncryptedItem, error)
	// ListKeyVersions returns versions sorted by key. A nil prefix matches
	// every key.
	ListKeyVersions(ctx context.Context, storeID string, prefix *string) ([]core.KeyVersion, error)
	Close() error
}

type VersionPolicy string

const (
	// KeepNewest ignores writes whose version is below the stored one.
	KeepNewest VersionPolicy = "keep_newest"
	// LastWriteWins stores every write.
	LastWriteWins VersionPolicy = "last_write_wins"
	// RejectStale fails the whole batch when any write is below the stored
	// version.
	RejectStale VersionPolicy = "reject_stale"
)

func ParseVersionPolicy(value string) (VersionPolicy, error) {
	switch VersionPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", KeepNewest:
		return KeepNewest, nil
	case LastWriteWins:
		return LastWriteWins, nil
	case RejectStale:
		return RejectStale, nil
	default:
		return "", fmt.Errorf("store: unknown version policy %q", value)
	}
}

// Decide reports whether incoming should replace the stored version.
func (p VersionPolicy) Decide(stored uint32, exists bool, incoming uint32) (bool, error) {
	if !exists || incoming >= stored {
		return true, nil
	}
	switch p {
	case LastWriteWins:
		return true, nil
	case RejectStale:
		return false, fmt.Errorf("%w: stored %d, incoming %d", ErrVersionConflict, stored, incoming)
	default:
		return false, nil
	}
}

func ValidateStoreID(storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return fmt.Errorf("store: store id is required")
	}
	return nil
}

// MatchesPrefix treats a nil prefix as matching everything.
func MatchesPrefix(key string, prefix *string) bool {
	return prefix == nil || strings.HasPrefix(key, *prefix)
}
