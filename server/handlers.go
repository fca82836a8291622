package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/goliatone/go-vss/core"
	"github.com/goliatone/go-vss/store"
)

type errResponse struct {
	HTTPStatusCode int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorMessage   string `json:"error_message"`
	RequestID      string `json:"request_id,omitempty"`
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

const (
	errorTypeBadRequest   = "BadRequest"
	errorTypeUnauthorized = "Unauthorized"
	errorTypeNotFound     = "NotFound"
	errorTypeConflict     = "VersionConflict"
	errorTypeTooLarge     = "PayloadTooLarge"
	errorTypeInternal     = "Internal"
)

// requestError carries the HTTP status a handler failure maps to.
type requestError struct {
	status    int
	errorType string
	err       error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, errorType: errorTypeBadRequest, err: fmt.Errorf(format, args...)}
}

func unauthorized(err error) error {
	return &requestError{status: http.StatusUnauthorized, errorType: errorTypeUnauthorized, err: err}
}

func (s *Server) handlePutObjects(w http.ResponseWriter, r *http.Request) {
	var req core.PutObjectsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	storeID, err := s.resolveStoreID(r, req.StoreID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for idx, item := range req.TransactionItems {
		if strings.TrimSpace(item.Key) == "" {
			s.fail(w, r, badRequest("transaction_items[%d].key is required", idx))
			return
		}
	}
	if err := s.store.PutItems(r.Context(), storeID, req.TransactionItems, s.policy); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	var req core.GetObjectRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	storeID, err := s.resolveStoreID(r, req.StoreID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		s.fail(w, r, badRequest("key is required"))
		return
	}
	item, err := s.store.GetItem(r.Context(), storeID, req.Key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (s *Server) handleListKeyVersions(w http.ResponseWriter, r *http.Request) {
	var req core.ListKeyVersionsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	storeID, err := s.resolveStoreID(r, req.StoreID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	versions, err := s.store.ListKeyVersions(r.Context(), storeID, req.KeyPrefix)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if versions == nil {
		versions = []core.KeyVersion{}
	}
	render.JSON(w, r, versions)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(out); err != nil {
		return decodeError(err)
	}
	// the body must hold exactly one JSON value
	if err := decoder.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return badRequest("malformed request body: trailing data after json value")
		}
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, errorType: errorTypeTooLarge, err: err}
	}
	return badRequest("malformed request body: %v", err)
}

// resolveStoreID prefers the body store_id and falls back to the subject of
// a verified bearer token.
func (s *Server) resolveStoreID(r *http.Request, bodyStoreID *string) (string, error) {
	if bodyStoreID != nil {
		storeID := strings.TrimSpace(*bodyStoreID)
		if storeID == "" {
			return "", badRequest("store_id must not be empty")
		}
		return storeID, nil
	}
	if s.verifier == nil {
		return "", unauthorized(errors.New("store_id is required"))
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", unauthorized(errors.New("bearer token is required"))
	}
	subject, err := s.verifier.Subject(token)
	if err != nil {
		return "", unauthorized(err)
	}
	return subject, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := &errResponse{
		HTTPStatusCode: http.StatusInternalServerError,
		ErrorType:      errorTypeInternal,
		ErrorMessage:   err.Error(),
		RequestID:      RequestIDFromContext(r.Context()),
	}
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		resp.HTTPStatusCode = reqErr.status
		resp.ErrorType = reqErr.errorType
	case errors.Is(err, store.ErrNotFound):
		resp.HTTPStatusCode = http.StatusNotFound
		resp.ErrorType = errorTypeNotFound
	case errors.Is(err, ErrVersionConflict):
		resp.HTTPStatusCode = http.StatusConflict
		resp.ErrorType = errorTypeConflict
	default:
		s.logger.WithContext(r.Context()).Error("vss server: store failure",
			"path", r.URL.Path,
			"request_id", resp.RequestID,
			"error", err,
		)
		resp.ErrorMessage = "internal error"
	}
	if err := render.Render(w, r, resp); err != nil {
		http.Error(w, resp.ErrorMessage, resp.HTTPStatusCode)
	}
}
