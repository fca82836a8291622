// Package server is a reference VSS endpoint over a store.ItemStore. It
// serves the same three routes the client speaks and never sees plaintext.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/store"
)

// ErrVersionConflict is returned by stores under store.RejectStale and
// served as 409.
var ErrVersionConflict = store.ErrVersionConflict

const loggerName = "vss.server"

// SubjectVerifier resolves a bearer token to a store id.
type SubjectVerifier interface {
	Subject(token string) (string, error)
}

type Server struct {
	store    store.ItemStore
	policy   store.VersionPolicy
	verifier SubjectVerifier
	logger   glog.Logger
	maxBody  int64
	router   chi.Router
}

type Option func(*Server)

func WithLogger(logger glog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(s *Server) {
		if provider == nil {
			return
		}
		if named := provider.GetLogger(loggerName); named != nil {
			s.logger = named
		}
	}
}

func WithVersionPolicy(policy store.VersionPolicy) Option {
	return func(s *Server) {
		s.policy = policy
	}
}

// WithVerifier enables requests that omit store_id and authenticate with a
// bearer token instead.
func WithVerifier(verifier SubjectVerifier) Option {
	return func(s *Server) {
		s.verifier = verifier
	}
}

func WithMaxRequestBodyBytes(limit int64) Option {
	return func(s *Server) {
		s.maxBody = limit
	}
}

func New(itemStore store.ItemStore, opts ...Option) (*Server, error) {
	if itemStore == nil {
		return nil, fmt.Errorf("server: item store is required")
	}
	s := &Server{
		store:   itemStore,
		policy:  store.KeepNewest,
		maxBody: defaultRequestBodySize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.logger = glog.Ensure(s.logger)
	policy, err := store.ParseVersionPolicy(string(s.policy))
	if err != nil {
		return nil, err
	}
	s.policy = policy
	if s.maxBody <= 0 {
		s.maxBody = defaultRequestBodySize
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Put(core.PathPutObjects, s.handlePutObjects)
	r.Post(core.PathGetObject, s.handleGetObject)
	r.Post(core.PathListKeyVersions, s.handleListKeyVersions)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in
// flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("vss server listening", "addr", addr, "policy", string(s.policy))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("vss server shutting down", "addr", addr)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
