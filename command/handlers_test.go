package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vss/core"
)

type stubWriter struct {
	putFn func(ctx context.Context, items []core.VersionedItem) error
}

func (s stubWriter) PutObjects(ctx context.Context, items []core.VersionedItem) error {
	return s.putFn(ctx, items)
}

func TestPutObjectsCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	var received []core.VersionedItem
	writer := stubWriter{putFn: func(_ context.Context, items []core.VersionedItem) error {
		received = items
		return nil
	}}

	cmd := NewPutObjectsCommand(writer)
	collector := gocmd.NewResult[PutObjectsResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, PutObjectsMessage{Items: []core.VersionedItem{
		{Key: "a", Value: json.RawMessage(`1`), Version: 1},
		{Key: "b", Value: json.RawMessage(`"two"`), Version: 2},
	}})
	if err != nil {
		t.Fatalf("execute put objects: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("expected both items in one call, got %d", len(received))
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if len(result.Keys) != 2 || result.Keys[0] != "a" || result.Keys[1] != "b" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestPutObjectsCommand_RejectsInvalidBatchesWithoutWriting(t *testing.T) {
	cases := map[string][]core.VersionedItem{
		"empty key":     {{Key: " ", Value: json.RawMessage(`1`)}},
		"invalid value": {{Key: "a", Value: json.RawMessage(`{`)}},
		"missing value": {{Key: "a"}},
		"duplicate key": {{Key: "a", Value: json.RawMessage(`1`)}, {Key: "a", Value: json.RawMessage(`2`)}},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			called := false
			cmd := NewPutObjectsCommand(stubWriter{putFn: func(context.Context, []core.VersionedItem) error {
				called = true
				return nil
			}})
			err := cmd.Execute(context.Background(), PutObjectsMessage{Items: items})
			if !core.IsKind(err, core.KindBadInput) {
				t.Fatalf("expected bad input, got %v", err)
			}
			if called {
				t.Fatalf("expected writer not to be called")
			}
		})
	}
}

func TestPutObjectsCommand_PropagatesWriterError(t *testing.T) {
	want := core.NewError("vss: unreachable", core.ErrorTransport, nil)
	cmd := NewPutObjectsCommand(stubWriter{putFn: func(context.Context, []core.VersionedItem) error {
		return want
	}})
	err := cmd.Execute(context.Background(), PutObjectsMessage{})
	if !errors.Is(err, want) {
		t.Fatalf("expected writer error, got %v", err)
	}
}

func TestPutObjectCommand_MarshalsValue(t *testing.T) {
	var received []core.VersionedItem
	cmd := NewPutObjectCommand(stubWriter{putFn: func(_ context.Context, items []core.VersionedItem) error {
		received = items
		return nil
	}})
	collector := gocmd.NewResult[core.VersionedItem]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, PutObjectMessage{Key: "theme", Value: map[string]string{"mode": "dark"}, Version: 4}); err != nil {
		t.Fatalf("execute put object: %v", err)
	}
	if len(received) != 1 || received[0].Key != "theme" || received[0].Version != 4 {
		t.Fatalf("unexpected items: %#v", received)
	}
	if string(received[0].Value) != `{"mode":"dark"}` {
		t.Fatalf("unexpected value: %s", received[0].Value)
	}
	stored, ok := collector.Load()
	if !ok || stored.Key != "theme" {
		t.Fatalf("expected stored item result, got %#v", stored)
	}

	if err := cmd.Execute(context.Background(), PutObjectMessage{Key: "bad", Value: make(chan int)}); !core.IsKind(err, core.KindBadInput) {
		t.Fatalf("expected bad input for unmarshalable value, got %v", err)
	}
}
