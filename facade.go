package vss

import (
	"context"
	"fmt"

	vsscommand "github.com/goliatone/go-vss/command"
	"github.com/goliatone/go-vss/core"
	vssquery "github.com/goliatone/go-vss/query"
)

// ObjectService is the client surface the facade handlers delegate to.
type ObjectService interface {
	PutObjects(ctx context.Context, items []core.VersionedItem) error
	GetObject(ctx context.Context, key string) (core.VersionedItem, error)
	ListKeyVersions(ctx context.Context, keyPrefix *string) ([]core.KeyVersion, error)
}

type Commands struct {
	PutObjects *vsscommand.PutObjectsCommand
	PutObject  *vsscommand.PutObjectCommand
}

type Queries struct {
	GetObject       *vssquery.GetObjectQuery
	LookupObject    *vssquery.LookupObjectQuery
	ListKeyVersions *vssquery.ListKeyVersionsQuery
}

type Facade struct {
	service  ObjectService
	commands Commands
	queries  Queries
}

func NewFacade(service ObjectService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("vss: object service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			PutObjects: vsscommand.NewPutObjectsCommand(service),
			PutObject:  vsscommand.NewPutObjectCommand(service),
		},
		queries: Queries{
			GetObject:       vssquery.NewGetObjectQuery(service),
			LookupObject:    vssquery.NewLookupObjectQuery(service),
			ListKeyVersions: vssquery.NewListKeyVersionsQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() ObjectService {
	if f == nil {
		return nil
	}
	return f.service
}
