package core

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) Trace(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Fatal(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) WithContext(context.Context) Logger {
	return l
}

func (l *recordingLogger) contains(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.messages {
		if entry == msg {
			return true
		}
	}
	return false
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// httpAdapter is a minimal TransportAdapter over net/http.
type httpAdapter struct {
	client *http.Client
	calls  int
	mu     sync.Mutex
}

func (a *httpAdapter) Kind() string { return "test_http" }

func (a *httpAdapter) Do(ctx context.Context, req TransportRequest) (TransportResponse, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return TransportResponse{}, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	client := a.client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(httpReq)
	if err != nil {
		return TransportResponse{}, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return TransportResponse{}, err
	}
	return TransportResponse{StatusCode: res.StatusCode, Headers: map[string]string{}, Body: body}, nil
}

// stubAuthClient records the body it receives and answers with fn or with
// a request against handler.
type stubAuthClient struct {
	fn       func(ctx context.Context, method string, u *url.URL, body any) (*http.Response, error)
	handler  http.Handler
	lastBody []byte
}

func (s *stubAuthClient) Request(ctx context.Context, method string, u *url.URL, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	s.lastBody = payload
	if s.fn != nil {
		return s.fn(ctx, method, u, body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer test-token")
	recorder := newResponseRecorder()
	s.handler.ServeHTTP(recorder, req)
	return recorder.result(), nil
}

type responseRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: http.Header{}, status: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header         { return r.header }
func (r *responseRecorder) Write(p []byte) (int, error) { return r.body.Write(p) }
func (r *responseRecorder) WriteHeader(status int)      { r.status = status }

func (r *responseRecorder) result() *http.Response {
	return &http.Response{
		StatusCode: r.status,
		Header:     r.header,
		Body:       io.NopCloser(bytes.NewReader(r.body.Bytes())),
	}
}

// fakeVSS is an in-memory VSS endpoint keyed by store id. Requests without a
// store id fall back to the bearer token.
type fakeVSS struct {
	mu       sync.Mutex
	items    map[string]map[string]EncryptedItem
	requests map[string]int
	bodies   [][]byte
}

func newFakeVSS() *fakeVSS {
	return &fakeVSS{
		items:    map[string]map[string]EncryptedItem{},
		requests: map[string]int{},
	}
}

func (f *fakeVSS) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakeVSS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.URL.Path]++
	f.bodies = append(f.bodies, payload)

	var envelope struct {
		StoreID *string `json:"store_id"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	storeID := ""
	if envelope.StoreID != nil {
		storeID = *envelope.StoreID
	} else if token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); token != "" {
		storeID = "auth:" + token
	} else {
		http.Error(w, "missing store", http.StatusUnauthorized)
		return
	}
	store := f.items[storeID]
	if store == nil {
		store = map[string]EncryptedItem{}
		f.items[storeID] = store
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case PathPutObjects:
		var req PutObjectsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, item := range req.TransactionItems {
			if current, ok := store[item.Key]; ok && current.Version > item.Version {
				continue
			}
			store[item.Key] = item
		}
		w.WriteHeader(http.StatusOK)
	case PathGetObject:
		var req GetObjectRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		item, ok := store[req.Key]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(item)
	case PathListKeyVersions:
		var req ListKeyVersionsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := []KeyVersion{}
		for key, item := range store {
			if req.KeyPrefix != nil && !strings.HasPrefix(key, *req.KeyPrefix) {
				continue
			}
			out = append(out, KeyVersion{Key: key, Version: item.Version})
		}
		_ = json.NewEncoder(w).Encode(out)
	default:
		http.NotFound(w, r)
	}
}
