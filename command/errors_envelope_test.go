package command

import (
	"context"
	"encoding/json"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vss/core"
)

func TestPutObjectsMessage_ValidateReturnsRichError(t *testing.T) {
	err := (PutObjectsMessage{Items: []core.VersionedItem{{Key: "", Value: json.RawMessage(`1`)}}}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.ErrorBadInput, rich.TextCode)
	}
	if !core.IsKind(err, core.KindBadInput) {
		t.Fatalf("expected bad input kind")
	}
}

func TestPutObjectsCommand_NilWriterReturnsRichError(t *testing.T) {
	var cmd *PutObjectsCommand
	err := cmd.Execute(context.Background(), PutObjectsMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
