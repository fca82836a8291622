package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/goliatone/go-vss/core"
)

type stubRemote struct {
	versions []core.KeyVersion
	items    map[string]core.VersionedItem
	prefixes []*string
	fetched  []string
	getErr   map[string]error
}

func (s *stubRemote) ListKeyVersions(_ context.Context, keyPrefix *string) ([]core.KeyVersion, error) {
	s.prefixes = append(s.prefixes, keyPrefix)
	return s.versions, nil
}

func (s *stubRemote) GetObject(_ context.Context, key string) (core.VersionedItem, error) {
	s.fetched = append(s.fetched, key)
	if err, ok := s.getErr[key]; ok {
		return core.VersionedItem{}, err
	}
	return s.items[key], nil
}

func TestPuller_FetchesOnlyChangedKeys(t *testing.T) {
	remote := &stubRemote{
		versions: []core.KeyVersion{{Key: "a", Version: 2}, {Key: "b", Version: 1}, {Key: "c", Version: 0}},
		items: map[string]core.VersionedItem{
			"a": {Key: "a", Value: json.RawMessage(`"A"`), Version: 2},
			"c": {Key: "c", Value: json.RawMessage(`"C"`), Version: 0},
		},
	}
	puller := NewPuller(remote, nil)

	result, err := puller.Pull(context.Background(), "", map[string]uint32{"a": 1, "b": 1})
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(remote.prefixes) != 1 || remote.prefixes[0] != nil {
		t.Fatalf("expected nil prefix for empty string")
	}
	if len(remote.fetched) != 2 || remote.fetched[0] != "a" || remote.fetched[1] != "c" {
		t.Fatalf("unexpected fetched keys: %#v", remote.fetched)
	}
	if len(result.Items) != 2 || result.Items[0].Key != "a" || result.Items[1].Key != "c" {
		t.Fatalf("unexpected items: %#v", result.Items)
	}
}

func TestPuller_ToleratesVanishedKeysAndStopsOnOtherErrors(t *testing.T) {
	notFound := core.NewError("gone", core.ErrorTransport, nil).WithCode(http.StatusNotFound)
	remote := &stubRemote{
		versions: []core.KeyVersion{{Key: "a", Version: 1}, {Key: "b", Version: 1}},
		items:    map[string]core.VersionedItem{"b": {Key: "b", Value: json.RawMessage(`1`), Version: 1}},
		getErr:   map[string]error{"a": notFound},
	}
	prefix := "p/"
	result, err := NewPuller(remote, nil).Pull(context.Background(), prefix, nil)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if remote.prefixes[0] == nil || *remote.prefixes[0] != prefix {
		t.Fatalf("expected prefix to be forwarded")
	}
	if len(result.Vanished) != 1 || result.Vanished[0] != "a" || len(result.Items) != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}

	remote.getErr = map[string]error{"a": core.NewError("wrong key", core.ErrorDecryption, nil)}
	remote.fetched = nil
	if _, err := NewPuller(remote, nil).Pull(context.Background(), "", nil); !core.IsKind(err, core.KindDecryption) {
		t.Fatalf("expected decryption error, got %v", err)
	}
	if len(remote.fetched) != 1 {
		t.Fatalf("expected pull to stop at first failure, fetched %#v", remote.fetched)
	}
}

func TestPuller_RequiresRemote(t *testing.T) {
	if _, err := NewPuller(nil, nil).Pull(context.Background(), "", nil); !core.IsKind(err, core.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestPuller_ForwardsWhitespacePrefixVerbatim(t *testing.T) {
	remote := &stubRemote{}
	if _, err := NewPuller(remote, nil).Pull(context.Background(), "  ", nil); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if remote.prefixes[0] == nil || *remote.prefixes[0] != "  " {
		t.Fatalf("expected whitespace prefix to be kept, got %v", remote.prefixes[0])
	}
	if KeyPrefix("") != nil {
		t.Fatalf("expected empty prefix to mean no filter")
	}
}
