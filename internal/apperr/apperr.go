// Package apperr defines the client-facing error taxonomy of the auth endpoints.
//
// An Error carries a message that is always safe to serialize and an optional
// cause that is only ever logged.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failure for status mapping and logging.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindRateLimited          Kind = "rate_limited"
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindNotFoundOrNoPassword Kind = "not_found_or_no_password"
	KindInvalidCode          Kind = "invalid_code"
	KindAuthChannel          Kind = "auth_channel"
	KindIdentityProvider     Kind = "identity_provider"
	KindToken                Kind = "token"
	KindNotFound             Kind = "not_found"
	KindInternal             Kind = "internal"
)

// Error is a classified failure with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	// NeedsWhatsApp steers the client back to code verification.
	NeedsWhatsApp bool
	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause returns the underlying error, if any. It must never be sent to clients.
func (e *Error) Cause() error { return e.cause }

// HTTPStatus maps the kind onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidCredentials, KindNotFoundOrNoPassword, KindInvalidCode, KindToken:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Body is the flat JSON shape of every error response.
type Body struct {
	Error         string `json:"error"`
	NeedsWhatsApp bool   `json:"needsWhatsApp,omitempty"`
}

// Body returns the serializable view of the error.
func (e *Error) Body() Body {
	return Body{Error: e.Message, NeedsWhatsApp: e.NeedsWhatsApp}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func RateLimited(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: message, RetryAfter: retryAfter}
}

func Token(message string, cause error) *Error { return Wrap(KindToken, message, cause) }

// As extracts an *Error from err. Unclassified errors come back as KindInternal
// carrying fallback as their message.
func As(err error, fallback string) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(KindInternal, fallback, err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
