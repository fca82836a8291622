package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

// Client speaks the VSS protocol. It is immutable after construction and safe
// for concurrent use; every operation is a single request/response exchange.
type Client struct {
	baseURL   string
	key       SecretKey
	codec     Codec
	transport Transport
	logger    Logger
	maxBody   int64
	userAgent string
}

func NewAuthenticatedClient(baseURL string, key SecretKey, delegate AuthClient, opts ...Option) (*Client, error) {
	if delegate == nil {
		return nil, NewError("vss: authenticated client requires an auth client", ErrorBadInput, nil)
	}
	builder := newClientBuilder(opts...)
	return newClient(baseURL, key, AuthenticatedTransport{Delegate: delegate}, builder)
}

func NewAnonymousClient(baseURL string, key SecretKey, adapter TransportAdapter, opts ...Option) (*Client, error) {
	if adapter == nil {
		return nil, NewError("vss: anonymous client requires a transport adapter", ErrorBadInput, nil)
	}
	if key.IsZero() {
		return nil, NewError("vss: secret key is required", ErrorBadInput, nil)
	}
	builder := newClientBuilder(opts...)
	return newClient(baseURL, key, AnonymousTransport{Adapter: adapter, StoreID: key.PublicKeyHex()}, builder)
}

// NewClient resolves cfg through the configured provider and resolver and
// builds the client for the selected mode. The mode's collaborator must be
// supplied with WithAuthClient or WithTransportAdapter.
func NewClient(cfg Config, key SecretKey, opts ...Option) (*Client, error) {
	builder := newClientBuilder(opts...)
	resolved, err := ResolveConfig(context.Background(), cfg, builder.configProvider, builder.optionsResolver)
	if err != nil {
		return nil, passThrough(err, ErrorBadInput, "vss: invalid client config", nil)
	}
	if builder.maxBody <= 0 {
		builder.maxBody = resolved.MaxResponseBodyBytes
	}
	if builder.userAgent == "" {
		builder.userAgent = strings.TrimSpace(resolved.UserAgent)
	}

	mode, _ := ParseMode(resolved.Mode)
	switch mode {
	case ModeAuthenticated:
		if builder.authClient == nil {
			return nil, NewError("vss: authenticated mode requires an auth client", ErrorBadInput, nil)
		}
		return newClient(resolved.BaseURL, key, AuthenticatedTransport{Delegate: builder.authClient}, builder)
	default:
		adapter, err := builder.adapterFor(resolved.Transport)
		if err != nil {
			return nil, err
		}
		if key.IsZero() {
			return nil, NewError("vss: secret key is required", ErrorBadInput, nil)
		}
		return newClient(resolved.BaseURL, key, AnonymousTransport{
			Adapter: adapter,
			StoreID: key.PublicKeyHex(),
		}, builder)
	}
}

func (b clientBuilder) adapterFor(kind string) (TransportAdapter, error) {
	if b.transportAdapter != nil {
		return b.transportAdapter, nil
	}
	if b.registry == nil {
		return nil, NewError("vss: anonymous mode requires a transport adapter", ErrorBadInput, nil)
	}
	adapter, err := b.registry.Build(kind, nil)
	if err != nil {
		return nil, WrapError(err, ErrorBadInput, "vss: build transport adapter", map[string]any{"transport": kind})
	}
	if adapter == nil {
		return nil, NewError("vss: transport registry returned no adapter", ErrorBadInput, map[string]any{"transport": kind})
	}
	return adapter, nil
}

func newClient(baseURL string, key SecretKey, transport Transport, builder clientBuilder) (*Client, error) {
	if key.IsZero() {
		return nil, NewError("vss: secret key is required", ErrorBadInput, nil)
	}
	client := &Client{
		baseURL:   strings.TrimSpace(baseURL),
		key:       key,
		codec:     builder.codec,
		transport: transport,
		logger:    builder.resolveLogger(),
		maxBody:   builder.maxBody,
		userAgent: builder.userAgent,
	}
	if client.maxBody <= 0 {
		client.maxBody = defaultResponseBodyLimit
	}

	switch t := transport.(type) {
	case AnonymousTransport:
		client.logger.Info("vss: creating unauthenticated client", "base_url", client.baseURL, "store_id", t.StoreID)
	case AuthenticatedTransport:
		client.logger.Info("vss: creating authenticated client", "base_url", client.baseURL)
	}
	return client, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Mode() Mode {
	return c.transport.Mode()
}

// StoreID returns the locally known store identifier. Authenticated clients
// report false: the auth delegate owns the identity.
func (c *Client) StoreID() (string, bool) {
	id := c.transport.storeID()
	if id == nil {
		return "", false
	}
	return *id, true
}

// PutObjects encrypts items and submits them as a single transaction. The
// server applies the batch atomically; the client never splits it.
func (c *Client) PutObjects(ctx context.Context, items []VersionedItem) error {
	const operation = "put objects"
	endpoint, err := c.endpoint(PathPutObjects)
	if err != nil {
		c.logger.Error("vss: error parsing put objects url", "error", err)
		return err
	}

	encrypted := make([]EncryptedItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Key) == "" {
			return NewError("vss: item key is required", ErrorBadInput, map[string]any{"operation": operation})
		}
		enc, err := item.Encrypt(c.codec, c.key)
		if err != nil {
			c.logger.Error("vss: error encrypting item", "key", item.Key, "error", err)
			return err
		}
		encrypted = append(encrypted, enc)
	}

	body := PutObjectsRequest{
		StoreID:          c.transport.storeID(),
		TransactionItems: encrypted,
	}
	if _, err := c.exchange(ctx, operation, http.MethodPut, endpoint, body); err != nil {
		return err
	}
	return nil
}

func (c *Client) GetObject(ctx context.Context, key string) (VersionedItem, error) {
	const operation = "get object"
	if strings.TrimSpace(key) == "" {
		return VersionedItem{}, NewError("vss: key is required", ErrorBadInput, map[string]any{"operation": operation})
	}
	endpoint, err := c.endpoint(PathGetObject)
	if err != nil {
		c.logger.Error("vss: error parsing get object url", "error", err)
		return VersionedItem{}, err
	}

	res, err := c.exchange(ctx, operation, http.MethodPost, endpoint, GetObjectRequest{
		StoreID: c.transport.storeID(),
		Key:     key,
	})
	if err != nil {
		return VersionedItem{}, err
	}

	var item EncryptedItem
	if err := json.Unmarshal(res.Body, &item); err != nil {
		c.logger.Error("vss: error parsing get object response", "key", key, "error", err)
		return VersionedItem{}, WrapError(err, ErrorResponseParse, "vss: parse get object response", map[string]any{"key": key})
	}
	if item.Key != key {
		c.logger.Error("vss: get object response key mismatch", "key", key, "got", item.Key)
		return VersionedItem{}, NewError(
			fmt.Sprintf("vss: get object response key mismatch: got %q want %q", item.Key, key),
			ErrorResponseParse,
			map[string]any{"key": key},
		)
	}

	out, err := item.Decrypt(c.codec, c.key)
	if err != nil {
		c.logger.Error("vss: error decrypting object", "key", key, "version", item.Version, "error", err)
		return VersionedItem{}, err
	}
	return out, nil
}

// ListKeyVersions returns version metadata without fetching or decrypting
// values. A nil prefix lists every key in the store.
func (c *Client) ListKeyVersions(ctx context.Context, keyPrefix *string) ([]KeyVersion, error) {
	const operation = "list key versions"
	endpoint, err := c.endpoint(PathListKeyVersions)
	if err != nil {
		c.logger.Error("vss: error parsing list key versions url", "error", err)
		return nil, err
	}

	res, err := c.exchange(ctx, operation, http.MethodPost, endpoint, ListKeyVersionsRequest{
		StoreID:   c.transport.storeID(),
		KeyPrefix: keyPrefix,
	})
	if err != nil {
		return nil, err
	}

	var versions []KeyVersion
	if err := json.Unmarshal(res.Body, &versions); err != nil {
		c.logger.Error("vss: error parsing list key versions response", "error", err)
		return nil, WrapError(err, ErrorResponseParse, "vss: parse list key versions response", nil)
	}
	if versions == nil {
		versions = []KeyVersion{}
	}
	return versions, nil
}

func (c *Client) endpoint(path string) (*url.URL, error) {
	raw := strings.TrimRight(c.baseURL, "/") + path
	parsed, err := url.Parse(raw)
	if err == nil && (parsed.Scheme == "" || parsed.Host == "") {
		err = fmt.Errorf("url %q is not absolute", raw)
	}
	if err != nil {
		return nil, WrapError(err, ErrorURLParse, "vss: invalid request url", map[string]any{"url": raw})
	}
	return parsed, nil
}

// exchange dispatches through the configured transport and fails on any
// non-2xx status.
func (c *Client) exchange(ctx context.Context, operation string, method string, endpoint *url.URL, body any) (TransportResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := c.dispatch(ctx, operation, method, endpoint, body)
	if err != nil {
		c.logger.Error("vss: error making request", "operation", operation, "url", endpoint.String(), "error", err)
		return TransportResponse{}, err
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		err := statusError(operation, res.StatusCode, res.Body)
		c.logger.Error("vss: request failed", "operation", operation, "status_code", res.StatusCode)
		return TransportResponse{}, err
	}
	return res, nil
}

func (c *Client) dispatch(ctx context.Context, operation string, method string, endpoint *url.URL, body any) (TransportResponse, error) {
	metadata := map[string]any{"operation": operation, "method": method, "url": endpoint.String()}

	switch t := c.transport.(type) {
	case AuthenticatedTransport:
		res, err := t.Delegate.Request(ctx, method, endpoint, body)
		if err != nil {
			return TransportResponse{}, passThrough(err, ErrorAuth, "vss: auth client request failed", metadata)
		}
		if res == nil {
			return TransportResponse{}, NewError("vss: auth client returned no response", ErrorAuth, metadata)
		}
		defer res.Body.Close()
		payload, err := readLimited(res.Body, c.maxBody)
		if err != nil {
			return TransportResponse{}, WrapError(err, ErrorTransport, "vss: read response body", metadata)
		}
		return TransportResponse{StatusCode: res.StatusCode, Body: payload}, nil

	case AnonymousTransport:
		payload, err := json.Marshal(body)
		if err != nil {
			return TransportResponse{}, WrapError(err, ErrorInternal, "vss: encode request body", metadata)
		}
		headers := map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		}
		if c.userAgent != "" {
			headers["User-Agent"] = c.userAgent
		}
		res, err := t.Adapter.Do(ctx, TransportRequest{
			Method:               method,
			URL:                  endpoint.String(),
			Headers:              headers,
			Body:                 payload,
			MaxResponseBodyBytes: c.maxBody,
		})
		if err != nil {
			return TransportResponse{}, passThrough(err, ErrorTransport, "vss: execute request", metadata)
		}
		return res, nil

	default:
		panic(fmt.Sprintf("vss: unsupported transport %T", c.transport))
	}
}

func readLimited(body io.Reader, limit int64) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > limit {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", limit)
	}
	return payload, nil
}
