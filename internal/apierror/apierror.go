// Package apierror provides the error taxonomy shared by the pricing engine, the
// booking coordinator and the HTTP layer. Every error that reaches a client goes
// through From so that internal details (SQL, driver messages, stack traces) are
// never exposed.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable error code returned in the "code" field.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindInvalidDateFormat    Kind = "invalid_date_format"
	KindMissingConfig        Kind = "missing_config"
	KindNoMatchingPriceEntry Kind = "no_matching_price_entry"
	KindSlotFull             Kind = "slot_full"
	KindInvalidTransition    Kind = "invalid_transition"
	KindInvalidClient        Kind = "invalid_client"
	KindEmptyItemList        Kind = "empty_item_list"
	KindMissingReason        Kind = "missing_reason"
	KindNotFound             Kind = "not_found"
	KindServiceUnavailable   Kind = "service_unavailable"

	// Transport-level kinds, produced by middleware rather than domain code.
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindTooManyRequests Kind = "too_many_requests"
	KindInternal        Kind = "internal_error"
)

// Error is a domain error: a kind, a localized message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and a client-safe message to an internal error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Unavailable reports a transient infrastructure failure. The cause is kept for
// logging only.
func Unavailable(err error) *Error {
	return Wrap(KindServiceUnavailable, err, "Servicio no disponible, intente nuevamente")
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindInvalidDateFormat, KindSlotFull, KindInvalidTransition,
		KindInvalidClient, KindEmptyItemList, KindMissingReason:
		return http.StatusBadRequest
	case KindMissingConfig, KindNoMatchingPriceEntry:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code    Kind   `json:"code"`
	Message string `json:"message"`
}

func New(kind Kind, msg string) *APIError {
	return &APIError{Code: kind, Message: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code    Kind              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: KindInvalidInput, Message: "Error de validación", Fields: fields}
}

// From converts any error into a status code and a client-safe envelope.
// The second return value reports whether err was a known domain error;
// unknown errors should be logged by the caller.
func From(err error) (int, *APIError, bool) {
	var e *Error
	if errors.As(err, &e) {
		return Status(e.Kind), New(e.Kind, e.Message), e.Kind != KindServiceUnavailable
	}
	u := Unavailable(err)
	return Status(u.Kind), New(u.Kind, u.Message), false
}
