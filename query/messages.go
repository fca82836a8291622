package query

import (
	"strings"

	"github.com/goliatone/go-vss/core"
)

const (
	TypeGetObject       = "vss.query.object.get"
	TypeLookupObject    = "vss.query.object.lookup"
	TypeListKeyVersions = "vss.query.key_versions.list"
)

type GetObjectMessage struct {
	Key string
}

func (GetObjectMessage) Type() string { return TypeGetObject }

func (m GetObjectMessage) Validate() error {
	if strings.TrimSpace(m.Key) == "" {
		return queryValidationError("key", "key is required")
	}
	return nil
}

// LookupObjectMessage is GetObjectMessage for callers that treat a missing
// key as a normal outcome.
type LookupObjectMessage struct {
	Key string
}

func (LookupObjectMessage) Type() string { return TypeLookupObject }

func (m LookupObjectMessage) Validate() error {
	return GetObjectMessage(m).Validate()
}

type ListKeyVersionsMessage struct {
	KeyPrefix *string
}

func (ListKeyVersionsMessage) Type() string { return TypeListKeyVersions }

func (ListKeyVersionsMessage) Validate() error {
	return nil
}

type ObjectLookup struct {
	Item  core.VersionedItem
	Found bool
}
