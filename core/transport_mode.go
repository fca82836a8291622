package core

import "strings"

type Mode string

const (
	ModeAnonymous     Mode = "anonymous"
	ModeAuthenticated Mode = "authenticated"
)

func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAnonymous:
		return ModeAnonymous, true
	case ModeAuthenticated:
		return ModeAuthenticated, true
	default:
		return "", false
	}
}

// Transport selects how requests reach the server. The interface is sealed:
// AuthenticatedTransport and AnonymousTransport are its only variants.
type Transport interface {
	Mode() Mode
	storeID() *string
	sealed()
}

// AuthenticatedTransport forwards every request to the delegate, which
// attaches credentials and owns the store identity.
type AuthenticatedTransport struct {
	Delegate AuthClient
}

func (AuthenticatedTransport) Mode() Mode { return ModeAuthenticated }

func (AuthenticatedTransport) storeID() *string { return nil }

func (AuthenticatedTransport) sealed() {}

// AnonymousTransport sends requests directly, addressed by the public key of
// the client's secret key.
type AnonymousTransport struct {
	Adapter TransportAdapter
	StoreID string
}

func (AnonymousTransport) Mode() Mode { return ModeAnonymous }

func (t AnonymousTransport) storeID() *string {
	id := t.StoreID
	return &id
}

func (AnonymousTransport) sealed() {}

var (
	_ Transport = AuthenticatedTransport{}
	_ Transport = AnonymousTransport{}
)
