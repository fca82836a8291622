package transport

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/goliatone/go-vss/core"
)

// HandlerAdapter serves requests with an http.Handler on the calling
// goroutine, so a client can talk to an embedded server without a socket.
type HandlerAdapter struct {
	handler http.Handler
}

func NewHandlerAdapter(handler http.Handler) *HandlerAdapter {
	return &HandlerAdapter{handler: handler}
}

func (*HandlerAdapter) Kind() string { return KindInProcess }

func (a *HandlerAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.handler == nil {
		return core.TransportResponse{}, newErr(KindInProcess, "transport: in-process adapter requires a handler", core.ErrorInternal, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return core.TransportResponse{}, wrapErr(KindInProcess, err, core.ErrorTransport, "transport: request cancelled", nil)
	}
	httpReq, err := buildRequest(ctx, KindInProcess, req)
	if err != nil {
		return core.TransportResponse{}, err
	}

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, httpReq)
	res := recorder.Result()
	defer res.Body.Close()
	return readResponse(KindInProcess, res, bodyLimit(req.MaxResponseBodyBytes))
}

var _ core.TransportAdapter = (*HandlerAdapter)(nil)
