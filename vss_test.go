package vss_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	vss "github.com/goliatone/go-vss"
	"github.com/goliatone/go-vss/auth"
	"github.com/goliatone/go-vss/server"
	memorystore "github.com/goliatone/go-vss/store/memory"
	"github.com/goliatone/go-vss/transport"
)

func newKey(t *testing.T) vss.SecretKey {
	t.Helper()
	key, err := vss.GenerateSecretKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func newServer(t *testing.T, opts ...server.Option) *server.Server {
	t.Helper()
	srv, err := server.New(memorystore.New(), opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func TestNewInProcessClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client, err := vss.NewInProcessClient(newServer(t), newKey(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	item, err := vss.NewItem("greeting", map[string]string{"text": "hi"}, 1)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if err := client.PutObjects(ctx, []vss.VersionedItem{item}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := client.GetObject(ctx, "greeting")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Equal(item) {
		t.Fatalf("expected %s, got %s", item.Value, got.Value)
	}
	if _, err := client.GetObject(ctx, "missing"); !vss.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewAnonymousClient_OverHTTP(t *testing.T) {
	ctx := context.Background()
	httpServer := httptest.NewServer(newServer(t))
	defer httpServer.Close()

	key := newKey(t)
	client, err := vss.NewAnonymousClient(httpServer.URL, key)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if storeID, ok := client.StoreID(); !ok || storeID != key.PublicKeyHex() {
		t.Fatalf("expected store id to be derived from key, got %q", storeID)
	}
	item, _ := vss.NewItem("k", 1, 1)
	if err := client.PutObjects(ctx, []vss.VersionedItem{item}); err != nil {
		t.Fatalf("put: %v", err)
	}
	versions, err := client.ListKeyVersions(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 1 || versions[0].Key != "k" || versions[0].Version != 1 {
		t.Fatalf("unexpected versions %#v", versions)
	}
}

func TestNewClient_ResolvesRESTTransportFromRegistry(t *testing.T) {
	httpServer := httptest.NewServer(newServer(t))
	defer httpServer.Close()

	cfg := vss.DefaultConfig()
	cfg.BaseURL = httpServer.URL
	client, err := vss.NewClient(cfg, newKey(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ListKeyVersions(context.Background(), nil); err != nil {
		t.Fatalf("list through registry-built transport: %v", err)
	}

	cfg.Transport = transport.KindInProcess
	if _, err := vss.NewClient(cfg, newKey(t)); err == nil {
		t.Fatalf("expected in-process transport without a handler to fail")
	}
}

func TestNewHS256Client_StoreFromTokenSubject(t *testing.T) {
	ctx := context.Background()
	const secret = "test-secret"
	srv := newServer(t, server.WithVerifier(auth.NewHS256Verifier(auth.HS256VerifierConfig{Secret: secret})))
	httpServer := httptest.NewServer(srv)
	defer httpServer.Close()

	client, err := vss.NewHS256Client(httpServer.URL, newKey(t), vss.HS256Config{
		Secret:   secret,
		Subject:  "user-42",
		TokenTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, ok := client.StoreID(); ok {
		t.Fatalf("expected authenticated client to leave store id to the server")
	}
	item, _ := vss.NewItem("note", "secret", 2)
	if err := client.PutObjects(ctx, []vss.VersionedItem{item}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := client.GetObject(ctx, "note")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
}

func TestNewAuthenticatedClient_RequiresTokenSource(t *testing.T) {
	if _, err := vss.NewAuthenticatedClient("http://vss.local", newKey(t), nil); err == nil {
		t.Fatalf("expected missing token source to fail")
	}
}
