package core

import (
	"context"
	"net/http"
	"net/url"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vss/security"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type Codec = security.Codec

type SecretKey = security.SecretKey

// AuthClient is the delegated authenticated HTTP client. It owns credential
// attachment and the store identity of the account it authenticates.
type AuthClient interface {
	Request(ctx context.Context, method string, u *url.URL, body any) (*http.Response, error)
}

type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration

	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// TransportRegistry builds adapters by kind for anonymous clients that were
// not given one explicitly.
type TransportRegistry interface {
	Build(kind string, config map[string]any) (TransportAdapter, error)
}
