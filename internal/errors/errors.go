package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by who can act on it.
type Kind string

const (
	// KindValidation is missing or malformed user input, surfaced verbatim.
	KindValidation Kind = "validation_error"
	// KindBadRequest is a malformed request from a machine caller (webhook).
	KindBadRequest Kind = "bad_request"
	// KindNotFound covers unknown short codes and unmatched recipients.
	KindNotFound Kind = "not_found"
	// KindConfiguration is a missing operator setting, such as the gateway URL.
	KindConfiguration Kind = "configuration_error"
	// KindUpstream is a database or gateway failure.
	KindUpstream Kind = "upstream_error"
)

// Sentinel errors shared across packages
var (
	ErrShortCodeNotFound         = errors.New("short code not found")
	ErrShortCodeGenerationFailed = errors.New("failed to generate unique short code")
	ErrMissingTarget             = errors.New("qr code has no redirect target")
	ErrGatewayNotConfigured      = errors.New("gateway url is not configured")
	ErrGatewayRejected           = errors.New("gateway rejected the dispatch")
)

// Error is the typed error returned by the services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validation returns a user-correctable error.
func Validation(msg string) error { return newError(KindValidation, msg, nil) }

// BadRequest returns an error for malformed machine input.
func BadRequest(msg string) error { return newError(KindBadRequest, msg, nil) }

// NotFound returns a not-found error, optionally wrapping a cause.
func NotFound(msg string, err error) error { return newError(KindNotFound, msg, err) }

// Configuration returns an operator-facing configuration error.
func Configuration(msg string, err error) error { return newError(KindConfiguration, msg, err) }

// Upstream wraps a database or gateway failure.
func Upstream(msg string, err error) error { return newError(KindUpstream, msg, err) }

// KindOf reports the Kind of err, KindUpstream when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a Kind onto the response code handlers use.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to a caller. Upstream causes stay in the logs.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	return e.Message
}
