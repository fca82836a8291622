package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorURLParse      = "VSS_URL_PARSE"
	ErrorTransport     = "VSS_TRANSPORT"
	ErrorAuth          = "VSS_AUTH"
	ErrorResponseParse = "VSS_RESPONSE_PARSE"
	ErrorDecryption    = "VSS_DECRYPTION"
	ErrorEncoding      = "VSS_ENCODING"
	ErrorBadInput      = "VSS_BAD_INPUT"
	ErrorInternal      = "VSS_INTERNAL"
)

type ErrorKind string

const (
	KindUnknown       ErrorKind = ""
	KindURLParse      ErrorKind = "url_parse"
	KindTransport     ErrorKind = "transport"
	KindAuth          ErrorKind = "auth"
	KindResponseParse ErrorKind = "response_parse"
	KindDecryption    ErrorKind = "decryption"
	KindEncoding      ErrorKind = "encoding"
	KindBadInput      ErrorKind = "bad_input"
	KindInternal      ErrorKind = "internal"
)

var errorKinds = map[string]ErrorKind{
	ErrorURLParse:      KindURLParse,
	ErrorTransport:     KindTransport,
	ErrorAuth:          KindAuth,
	ErrorResponseParse: KindResponseParse,
	ErrorDecryption:    KindDecryption,
	ErrorEncoding:      KindEncoding,
	ErrorBadInput:      KindBadInput,
	ErrorInternal:      KindInternal,
}

// ErrorKindOf reports the taxonomy kind carried by err, or KindUnknown when
// err has no VSS envelope.
func ErrorKindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil {
		return KindUnknown
	}
	return errorKinds[strings.TrimSpace(rich.TextCode)]
}

func IsKind(err error, kind ErrorKind) bool {
	return kind != KindUnknown && ErrorKindOf(err) == kind
}

// IsNotFound reports a transport failure caused by a 404 response, which the
// reference server returns for keys it has never stored.
func IsNotFound(err error) bool {
	if !IsKind(err, KindTransport) {
		return false
	}
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Code == http.StatusNotFound
}

func NewError(message string, textCode string, metadata map[string]any) *goerrors.Error {
	category, code := classify(textCode)
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func WrapError(source error, textCode string, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewError(message, textCode, metadata)
	}
	category, code := classify(textCode)
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// statusError reports a non-success HTTP status. The status itself becomes the
// error code so callers can tell a missing key from an unreachable server.
func statusError(operation string, status int, body []byte) *goerrors.Error {
	metadata := map[string]any{
		"operation":   operation,
		"status_code": status,
	}
	if snippet := strings.TrimSpace(string(truncate(body, 256))); snippet != "" {
		metadata["response"] = snippet
	}
	err := goerrors.New("vss: "+operation+" returned "+http.StatusText(status), goerrors.CategoryExternal).
		WithCode(status).
		WithTextCode(ErrorTransport)
	err.WithMetadata(metadata)
	return err
}

// passThrough keeps errors that already carry a VSS envelope and wraps the
// rest under textCode.
func passThrough(err error, textCode string, message string, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	if ErrorKindOf(err) != KindUnknown {
		return err
	}
	return WrapError(err, textCode, message, metadata)
}

func classify(textCode string) (goerrors.Category, int) {
	switch textCode {
	case ErrorURLParse, ErrorBadInput:
		return goerrors.CategoryBadInput, http.StatusBadRequest
	case ErrorTransport, ErrorResponseParse:
		return goerrors.CategoryExternal, http.StatusBadGateway
	case ErrorAuth:
		return goerrors.CategoryAuth, http.StatusUnauthorized
	case ErrorDecryption, ErrorEncoding:
		return goerrors.CategoryOperation, http.StatusUnprocessableEntity
	default:
		return goerrors.CategoryInternal, http.StatusInternalServerError
	}
}

func truncate(body []byte, limit int) []byte {
	if len(body) <= limit {
		return body
	}
	return body[:limit]
}
