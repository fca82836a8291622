package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-vss/core"
)

const defaultHTTPTimeout = 30 * time.Second

// RESTAdapter sends VSS requests as plain HTTP. Status codes are left for
// the client to interpret.
type RESTAdapter struct {
	Client       HTTPDoer
	Headers      map[string]string
	MaxBodyBytes int64
}

func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &RESTAdapter{Client: client, Headers: map[string]string{}, MaxBodyBytes: defaultBodyLimit}
}

func (*RESTAdapter) Kind() string { return KindREST }

func (a *RESTAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, newErr(KindREST, "transport: rest adapter requires an http client", core.ErrorInternal, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if len(a.Headers) > 0 {
		merged := make(map[string]string, len(a.Headers)+len(req.Headers))
		for key, value := range a.Headers {
			merged[key] = value
		}
		for key, value := range req.Headers {
			merged[key] = value
		}
		req.Headers = merged
	}
	httpReq, err := buildRequest(ctx, KindREST, req)
	if err != nil {
		return core.TransportResponse{}, err
	}

	started := time.Now()
	res, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, wrapErr(KindREST, err, core.ErrorTransport, "transport: execute http request",
			map[string]any{"method": httpReq.Method, "url": httpReq.URL.String()})
	}
	defer res.Body.Close()

	out, err := readResponse(KindREST, res, bodyLimit(req.MaxResponseBodyBytes, a.MaxBodyBytes))
	if err != nil {
		return out, err
	}
	out.Metadata["duration_ms"] = time.Since(started).Milliseconds()
	return out, nil
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
