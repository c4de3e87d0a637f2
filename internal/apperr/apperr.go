// Package apperr defines the typed error kinds shared across the edge
// commissioning core and the HTTP status code each maps to. Handlers never
// hand-pick a status code; they translate whatever error a component
// returned through Status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error categories used across the core (spec §7).
type Kind int

const (
	// KindInternal is the catch-all for uncategorized failures.
	KindInternal Kind = iota
	// KindBadRequest covers malformed input: missing params, ROI with <3
	// vertices, address pool exhausted, inverted time ranges.
	KindBadRequest
	// KindNotFound covers missing venues, gateways, pairings, deployments.
	KindNotFound
	// KindGatewayOffline means a specific edge gateway is unreachable.
	KindGatewayOffline
	// KindDirectoryUnavailable means the mesh directory could not be listed.
	KindDirectoryUnavailable
	// KindRemoteError wraps a non-2xx response from an upstream gateway.
	KindRemoteError
	// KindTimeout means a deadline elapsed waiting on an RPC.
	KindTimeout
	// KindCoordinatorBusy means a venue's sensor-address coordinator is
	// already driving another sensor through the state machine.
	KindCoordinatorBusy
	// KindUniquenessViolation means a storage-layer uniqueness constraint
	// (e.g. one pairing per planned mount) was violated at write time.
	KindUniquenessViolation
)

// Error is the typed error returned by every component boundary in this
// module. Message is safe to surface to an operator; Status is the HTTP
// status the API layer should respond with.
type Error struct {
	Kind    Kind
	Message string
	Status  int

	// RemoteStatus and RemoteBody carry the upstream response for
	// KindRemoteError, so callers can log or surface gateway detail.
	RemoteStatus int
	RemoteBody   string

	cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return kindLabel(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

func kindLabel(k Kind) string {
	switch k {
	case KindBadRequest:
		return "bad request"
	case KindNotFound:
		return "not found"
	case KindGatewayOffline:
		return "gateway offline"
	case KindDirectoryUnavailable:
		return "mesh directory unavailable"
	case KindRemoteError:
		return "remote error"
	case KindTimeout:
		return "timeout"
	case KindCoordinatorBusy:
		return "coordinator busy"
	case KindUniquenessViolation:
		return "uniqueness violation"
	default:
		return "internal error"
	}
}

func statusFor(k Kind) int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindGatewayOffline:
		return http.StatusBadGateway
	case KindDirectoryUnavailable:
		return http.StatusServiceUnavailable
	case KindRemoteError:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCoordinatorBusy:
		return http.StatusConflict
	case KindUniquenessViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New builds an *Error of the given kind with a formatted message.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Status: statusFor(k)}
}

// Wrap builds an *Error of the given kind, preserving cause for errors.Is/As.
func Wrap(k Kind, cause error, format string, args ...interface{}) *Error {
	e := New(k, format, args...)
	e.cause = cause
	return e
}

// RemoteErrorf builds a KindRemoteError carrying the upstream status/body.
func RemoteErrorf(status int, body string, format string, args ...interface{}) *Error {
	e := New(KindRemoteError, format, args...)
	e.RemoteStatus = status
	e.RemoteBody = body
	return e
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}
