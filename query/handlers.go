package query

import (
	"context"

	"github.com/goliatone/go-vss/core"
)

type ObjectReader interface {
	GetObject(ctx context.Context, key string) (core.VersionedItem, error)
}

type KeyVersionLister interface {
	ListKeyVersions(ctx context.Context, keyPrefix *string) ([]core.KeyVersion, error)
}

type GetObjectQuery struct {
	reader ObjectReader
}

func NewGetObjectQuery(reader ObjectReader) *GetObjectQuery {
	return &GetObjectQuery{reader: reader}
}

func (q *GetObjectQuery) Query(ctx context.Context, msg GetObjectMessage) (core.VersionedItem, error) {
	if q == nil || q.reader == nil {
		return core.VersionedItem{}, queryDependencyError("query: object reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.VersionedItem{}, err
	}
	return q.reader.GetObject(ctx, msg.Key)
}

type LookupObjectQuery struct {
	reader ObjectReader
}

func NewLookupObjectQuery(reader ObjectReader) *LookupObjectQuery {
	return &LookupObjectQuery{reader: reader}
}

func (q *LookupObjectQuery) Query(ctx context.Context, msg LookupObjectMessage) (ObjectLookup, error) {
	if q == nil || q.reader == nil {
		return ObjectLookup{}, queryDependencyError("query: object reader is required")
	}
	if err := msg.Validate(); err != nil {
		return ObjectLookup{}, err
	}
	item, err := q.reader.GetObject(ctx, msg.Key)
	if err != nil {
		if core.IsNotFound(err) {
			return ObjectLookup{}, nil
		}
		return ObjectLookup{}, err
	}
	return ObjectLookup{Item: item, Found: true}, nil
}

type ListKeyVersionsQuery struct {
	lister KeyVersionLister
}

func NewListKeyVersionsQuery(lister KeyVersionLister) *ListKeyVersionsQuery {
	return &ListKeyVersionsQuery{lister: lister}
}

func (q *ListKeyVersionsQuery) Query(ctx context.Context, msg ListKeyVersionsMessage) ([]core.KeyVersion, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: key version lister is required")
	}
	return q.lister.ListKeyVersions(ctx, msg.KeyPrefix)
}
