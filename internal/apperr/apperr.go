// Package apperr defines the error taxonomy shared by transports,
// storage and the HTTP layer. Handlers map a Kind to an HTTP status
// without inspecting free-form messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindBadInput         Kind = "bad_input"          // caller sent something unusable
	KindNotFound         Kind = "not_found"          // requested entity does not exist
	KindMethodNotAllowed Kind = "method_not_allowed" // wrong HTTP verb
	KindUpstream         Kind = "upstream"           // venue answered with a failure
	KindTimeout          Kind = "timeout"            // venue exceeded the deadline
	KindUnavailable      Kind = "unavailable"        // dependency down or circuit open
	KindRateLimited      Kind = "rate_limited"       // caller exceeded the request budget
	KindInternal         Kind = "internal"           // anything else
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when a dependency cannot serve.
	ErrUnavailable = errors.New("unavailable")
)

// Error is a classified error. Message is safe to show to API clients.
type Error struct {
	Kind    Kind   // coarse class
	Message string // client-visible text
	Err     error  // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error with a client-visible message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an existing error, keeping it on the unwrap chain.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain.
// Plain errors and nil-free chains report KindInternal; sentinel
// storage errors map to their natural kinds.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	if errors.Is(err, ErrUnavailable) {
		return KindUnavailable
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the response status used by the gateway.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream, KindTimeout, KindInternal:
		return http.StatusInternalServerError
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// StatusFor is shorthand for HTTPStatus(KindOf(err)).
func StatusFor(err error) int {
	return HTTPStatus(KindOf(err))
}

// Message returns the client-visible message for an error chain.
// Unclassified errors collapse to a generic message so internals
// never leak into responses.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if errors.Is(err, ErrNotFound) {
		return "not found"
	}
	return "internal error"
}

// IsNotFound reports whether the chain carries a not-found condition.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsTimeout reports whether the chain carries an upstream timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
