package vss

import (
	"context"
	"testing"

	vsscommand "github.com/goliatone/go-vss/command"
	"github.com/goliatone/go-vss/core"
	vssquery "github.com/goliatone/go-vss/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade, err := NewFacade(&stubObjectService{})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.PutObjects == nil || commands.PutObject == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetObject == nil || queries.LookupObject == nil || queries.ListKeyVersions == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Service() == nil {
		t.Fatalf("expected service to be exposed")
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected nil service to be rejected")
	}
	var facade *Facade
	if facade.Commands().PutObjects != nil || facade.Queries().GetObject != nil || facade.Service() != nil {
		t.Fatalf("expected nil facade to expose zero values")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubObjectService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	ctx := context.Background()

	if err := facade.Commands().PutObject.Execute(ctx, vsscommand.PutObjectMessage{
		Key:     "settings/theme",
		Value:   "dark",
		Version: 3,
	}); err != nil {
		t.Fatalf("execute put object: %v", err)
	}
	if len(svc.lastPut) != 1 || svc.lastPut[0].Key != "settings/theme" || svc.lastPut[0].Version != 3 {
		t.Fatalf("unexpected put delegation payload: %#v", svc.lastPut)
	}

	item, err := facade.Queries().GetObject.Query(ctx, vssquery.GetObjectMessage{Key: "settings/theme"})
	if err != nil {
		t.Fatalf("query get object: %v", err)
	}
	if item.Key != "settings/theme" || svc.lastGetKey != "settings/theme" {
		t.Fatalf("unexpected get delegation: %#v", item)
	}

	prefix := "settings/"
	versions, err := facade.Queries().ListKeyVersions.Query(ctx, vssquery.ListKeyVersionsMessage{KeyPrefix: &prefix})
	if err != nil {
		t.Fatalf("query list key versions: %v", err)
	}
	if len(versions) != 1 || svc.lastPrefix == nil || *svc.lastPrefix != prefix {
		t.Fatalf("unexpected list delegation: %#v", versions)
	}
}

type stubObjectService struct {
	lastPut    []core.VersionedItem
	lastGetKey string
	lastPrefix *string
}

func (s *stubObjectService) PutObjects(_ context.Context, items []core.VersionedItem) error {
	s.lastPut = append([]core.VersionedItem(nil), items...)
	return nil
}

func (s *stubObjectService) GetObject(_ context.Context, key string) (core.VersionedItem, error) {
	s.lastGetKey = key
	return core.VersionedItem{Key: key, Value: []byte(`"dark"`), Version: 3}, nil
}

func (s *stubObjectService) ListKeyVersions(_ context.Context, keyPrefix *string) ([]core.KeyVersion, error) {
	s.lastPrefix = keyPrefix
	return []core.KeyVersion{{Key: "settings/theme", Version: 3}}, nil
}
