// Package vss is the entry point for the VSS client: it re-exports the core
// types and builds clients wired to the default transports.
package vss

import (
	"net/http"

	"github.com/goliatone/go-vss/auth"
	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/security"
	"github.com/goliatone/go-vss/transport"
)

type Config = core.Config

type Option = core.Option

type Client = core.Client

type VersionedItem = core.VersionedItem
type EncryptedItem = core.EncryptedItem
type KeyVersion = core.KeyVersion

type SecretKey = security.SecretKey

type TokenSource = auth.TokenSource
type HS256Config = auth.HS256TokenSourceConfig

var (
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithCodec                = core.WithCodec
	WithMaxResponseBodyBytes = core.WithMaxResponseBodyBytes
	WithUserAgent            = core.WithUserAgent
	WithAuthClient           = core.WithAuthClient
	WithTransportAdapter     = core.WithTransportAdapter
	WithTransportRegistry    = core.WithTransportRegistry
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver

	IsNotFound = core.IsNotFound
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func GenerateSecretKey() (SecretKey, error) {
	return security.GenerateSecretKey()
}

func ParseSecretKey(value string) (SecretKey, error) {
	return security.ParseSecretKey(value)
}

func NewItem(key string, value any, version uint32) (VersionedItem, error) {
	return core.NewVersionedItem(key, value, version)
}

// NewClient builds a client from cfg. Transport kinds resolve through the
// default registry unless an option supplies another one; options given
// later take precedence.
func NewClient(cfg Config, key SecretKey, opts ...Option) (*Client, error) {
	all := append([]Option{core.WithTransportRegistry(transport.NewDefaultRegistry())}, opts...)
	return core.NewClient(cfg, key, all...)
}

// NewAnonymousClient talks to baseURL over plain REST. The store id is the
// public key derived from key.
func NewAnonymousClient(baseURL string, key SecretKey, opts ...Option) (*Client, error) {
	return core.NewAnonymousClient(baseURL, key, transport.NewRESTAdapter(nil), opts...)
}

// NewInProcessClient serves requests from handler without a network hop.
func NewInProcessClient(handler http.Handler, key SecretKey, opts ...Option) (*Client, error) {
	return core.NewAnonymousClient("http://vss.inprocess", key, transport.NewHandlerAdapter(handler), opts...)
}

// NewAuthenticatedClient attaches bearer tokens from tokens to every request.
func NewAuthenticatedClient(baseURL string, key SecretKey, tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, core.NewError("vss: token source is required", core.ErrorBadInput, nil)
	}
	return core.NewAuthenticatedClient(baseURL, key, auth.NewBearerClient(auth.BearerClientConfig{Tokens: tokens}), opts...)
}

// NewHS256Client mints its own HS256 tokens from a shared secret.
func NewHS256Client(baseURL string, key SecretKey, cfg HS256Config, opts ...Option) (*Client, error) {
	return NewAuthenticatedClient(baseURL, key, auth.NewHS256TokenSource(cfg), opts...)
}
