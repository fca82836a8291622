package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestNewError_AssignsCategoryAndCode(t *testing.T) {
	cases := []struct {
		textCode string
		kind     ErrorKind
		category goerrors.Category
		code     int
	}{
		{ErrorURLParse, KindURLParse, goerrors.CategoryBadInput, http.StatusBadRequest},
		{ErrorBadInput, KindBadInput, goerrors.CategoryBadInput, http.StatusBadRequest},
		{ErrorTransport, KindTransport, goerrors.CategoryExternal, http.StatusBadGateway},
		{ErrorResponseParse, KindResponseParse, goerrors.CategoryExternal, http.StatusBadGateway},
		{ErrorAuth, KindAuth, goerrors.CategoryAuth, http.StatusUnauthorized},
		{ErrorDecryption, KindDecryption, goerrors.CategoryOperation, http.StatusUnprocessableEntity},
		{ErrorEncoding, KindEncoding, goerrors.CategoryOperation, http.StatusUnprocessableEntity},
		{ErrorInternal, KindInternal, goerrors.CategoryInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := NewError("boom", tc.textCode, map[string]any{"key": "k"})
		if err.Category != tc.category {
			t.Fatalf("%s: expected category %q, got %q", tc.textCode, tc.category, err.Category)
		}
		if err.Code != tc.code {
			t.Fatalf("%s: expected code %d, got %d", tc.textCode, tc.code, err.Code)
		}
		if got := ErrorKindOf(err); got != tc.kind {
			t.Fatalf("%s: expected kind %q, got %q", tc.textCode, tc.kind, got)
		}
	}
}

func TestErrorKindOf_UnwrapsWrappedErrors(t *testing.T) {
	inner := NewError("missing", ErrorDecryption, nil)
	wrapped := fmt.Errorf("outer: %w", inner)
	if !IsKind(wrapped, KindDecryption) {
		t.Fatalf("expected wrapped decryption error to be detected")
	}
	if ErrorKindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain errors to be unknown")
	}
	if ErrorKindOf(nil) != KindUnknown {
		t.Fatalf("expected nil error to be unknown")
	}
	if IsKind(errors.New("plain"), KindUnknown) {
		t.Fatalf("unknown kind must never match")
	}
}

func TestWrapError_PreservesSource(t *testing.T) {
	source := errors.New("connection refused")
	err := WrapError(source, ErrorTransport, "vss: execute request", nil)
	if !errors.Is(err, source) {
		t.Fatalf("expected wrapped source to be reachable")
	}
	if err.TextCode != ErrorTransport {
		t.Fatalf("expected text code %q, got %q", ErrorTransport, err.TextCode)
	}
}

func TestPassThrough_KeepsTypedErrors(t *testing.T) {
	typed := NewError("decrypt", ErrorDecryption, nil)
	if got := passThrough(typed, ErrorAuth, "auth", nil); got != error(typed) {
		t.Fatalf("expected typed error to pass through unchanged")
	}
	if got := passThrough(errors.New("bare"), ErrorAuth, "auth", nil); !IsKind(got, KindAuth) {
		t.Fatalf("expected bare error to be wrapped as auth, got %v", got)
	}
	if passThrough(nil, ErrorAuth, "auth", nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
}

func TestStatusError_NotFound(t *testing.T) {
	err := statusError("get object", http.StatusNotFound, []byte("missing"))
	if !IsNotFound(err) {
		t.Fatalf("expected not found")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category")
	}
	if IsNotFound(statusError("get object", http.StatusInternalServerError, nil)) {
		t.Fatalf("500 must not read as not found")
	}
	if IsNotFound(NewError("x", ErrorBadInput, nil)) {
		t.Fatalf("bad input carries 400 and must not read as not found")
	}
}
