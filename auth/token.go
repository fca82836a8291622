package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-vss/core"
)

// Token is a bearer credential. A zero ExpiresAt never expires.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) usable(now time.Time, renewBefore time.Duration) bool {
	if strings.TrimSpace(t.Value) == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return t.ExpiresAt.After(now.Add(renewBefore))
}

type TokenSource interface {
	Token(ctx context.Context) (Token, error)
}

type TokenSourceFunc func(ctx context.Context) (Token, error)

func (f TokenSourceFunc) Token(ctx context.Context) (Token, error) {
	return f(ctx)
}

// StaticTokenSource always returns the same non-expiring token.
func StaticTokenSource(value string) TokenSource {
	value = strings.TrimSpace(value)
	return TokenSourceFunc(func(context.Context) (Token, error) {
		if value == "" {
			return Token{}, core.NewError("auth: static token is empty", core.ErrorAuth, nil)
		}
		return Token{Value: value}, nil
	})
}
