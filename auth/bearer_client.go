package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/transport"
)

type BearerClientConfig struct {
	Tokens      TokenSource
	Client      transport.HTTPDoer
	RenewBefore time.Duration
	UserAgent   string
	Now         func() time.Time
}

// BearerClient is a core.AuthClient that attaches a cached bearer token to
// every request. The server derives the store from the token.
type BearerClient struct {
	config BearerClientConfig
	mu     sync.Mutex
	cached Token
}

func NewBearerClient(cfg BearerClientConfig) *BearerClient {
	renewBefore := cfg.RenewBefore
	if renewBefore <= 0 {
		renewBefore = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BearerClient{
		config: BearerClientConfig{
			Tokens:      cfg.Tokens,
			Client:      client,
			RenewBefore: renewBefore,
			UserAgent:   strings.TrimSpace(cfg.UserAgent),
			Now:         now,
		},
	}
}

func (c *BearerClient) Request(ctx context.Context, method string, u *url.URL, body any) (*http.Response, error) {
	if u == nil {
		return nil, core.NewError("auth: request url is required", core.ErrorURLParse, nil)
	}
	metadata := map[string]any{"method": method, "url": u.String()}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, core.WrapError(err, core.ErrorInternal, "auth: encode request body", metadata)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorURLParse, "auth: create request", metadata)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	res, err := c.config.Client.Do(req)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorTransport, "auth: execute request", metadata)
	}
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		_ = res.Body.Close()
		c.invalidate(token)
		metadata["status_code"] = res.StatusCode
		return nil, core.NewError("auth: server rejected bearer token", core.ErrorAuth, metadata)
	}
	return res, nil
}

func (c *BearerClient) token(ctx context.Context) (Token, error) {
	if c.config.Tokens == nil {
		return Token{}, core.NewError("auth: token source is required", core.ErrorAuth, nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached.usable(c.config.Now().UTC(), c.config.RenewBefore) {
		return c.cached, nil
	}
	issued, err := c.config.Tokens.Token(ctx)
	if err != nil {
		if core.ErrorKindOf(err) == core.KindAuth {
			return Token{}, err
		}
		return Token{}, core.WrapError(err, core.ErrorAuth, "auth: obtain bearer token", nil)
	}
	if strings.TrimSpace(issued.Value) == "" {
		return Token{}, core.NewError("auth: token source returned an empty token", core.ErrorAuth, nil)
	}
	c.cached = issued
	return issued, nil
}

// invalidate drops the cached token if it is still the rejected one.
func (c *BearerClient) invalidate(rejected Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached.Value == rejected.Value {
		c.cached = Token{}
	}
}

var _ core.AuthClient = (*BearerClient)(nil)
