// Package transport carries encoded VSS requests to a server, either over
// HTTP or straight into an in-process http.Handler.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-vss/core"
)

const (
	KindREST      = core.DefaultTransportKind
	KindInProcess = "inprocess"
)

const defaultBodyLimit int64 = 10 << 20

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// buildRequest turns req into an *http.Request. Only REST requests need an
// absolute URL.
func buildRequest(ctx context.Context, kind string, req core.TransportRequest) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	raw := strings.TrimSpace(req.URL)
	target, err := url.Parse(raw)
	if err != nil {
		return nil, wrapErr(kind, err, core.ErrorURLParse, "transport: invalid request url", map[string]any{"url": raw})
	}
	if kind == KindREST && (target.Scheme == "" || target.Host == "") {
		return nil, newErr(kind, "transport: request url must be absolute", core.ErrorURLParse, map[string]any{"url": raw})
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, wrapErr(kind, err, core.ErrorURLParse, "transport: create request", map[string]any{"method": method, "url": raw})
	}
	for key, value := range req.Headers {
		if key = strings.TrimSpace(key); key != "" {
			httpReq.Header.Set(key, strings.TrimSpace(value))
		}
	}
	return httpReq, nil
}

// readResponse drains body up to limit and fails when the server sent more.
func readResponse(kind string, res *http.Response, limit int64) (core.TransportResponse, error) {
	body, err := io.ReadAll(io.LimitReader(res.Body, limit+1))
	if err != nil {
		return core.TransportResponse{}, wrapErr(kind, err, core.ErrorTransport, "transport: read response body", map[string]any{"status_code": res.StatusCode})
	}
	if int64(len(body)) > limit {
		return core.TransportResponse{}, newErr(kind,
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit),
			core.ErrorTransport,
			map[string]any{"status_code": res.StatusCode, "response_limit_b": limit},
		)
	}
	headers := make(map[string]string, len(res.Header))
	for key, values := range res.Header {
		headers[key] = strings.Join(values, ",")
	}
	return core.TransportResponse{
		StatusCode: res.StatusCode,
		Headers:    headers,
		Body:       body,
		Metadata:   map[string]any{"kind": kind},
	}, nil
}

func bodyLimit(limits ...int64) int64 {
	for _, limit := range limits {
		if limit > 0 {
			return limit
		}
	}
	return defaultBodyLimit
}

func newErr(kind string, message string, textCode string, metadata map[string]any) error {
	return core.NewError(message, textCode, tagAdapter(kind, metadata))
}

func wrapErr(kind string, source error, textCode string, message string, metadata map[string]any) error {
	return core.WrapError(source, textCode, message, tagAdapter(kind, metadata))
}

func tagAdapter(kind string, metadata map[string]any) map[string]any {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["adapter"] = kind
	return metadata
}
