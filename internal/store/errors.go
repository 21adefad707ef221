package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Kind classifies a datastore failure.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindBadRequest Kind = "bad_request"
	KindTimeout    Kind = "timeout"
	KindUnexpected Kind = "unexpected"
)

// StoreError is a failed call to the remote datastore.
type StoreError struct {
	StatusCode int
	Kind       Kind
	Message    string
	Err        error
}

func (e *StoreError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("store %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("store %s: %s", e.Kind, e.Message)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) match a 404 from the datastore.
func (e *StoreError) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindBadRequest
	default:
		return KindUnexpected
	}
}

// NewStatusError builds a StoreError from a non-2xx response.
func NewStatusError(status int, message string) *StoreError {
	return &StoreError{StatusCode: status, Kind: KindForStatus(status), Message: message}
}

// WrapTransport converts a transport-level failure into a StoreError,
// classifying deadlines and client timeouts as KindTimeout.
func WrapTransport(err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	kind := KindUnexpected
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = KindTimeout
	}
	return &StoreError{Kind: kind, Message: err.Error(), Err: err}
}

// KindOf returns the kind of a StoreError in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// User-facing messages for datastore failures. They name the problem
// without exposing datastore details.
const (
	MessageUnavailable = "The membership service is temporarily unavailable."
	MessageTimeout     = "The request timed out. Please try again."
	MessageRejected    = "Some of the submitted details were rejected."
	MessageNotFound    = "The requested record was not found."
	MessageUnexpected  = "An unexpected error occurred."
)

// UserMessage maps err to an HTTP status and a message safe to show users.
func UserMessage(err error) (int, string) {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound, MessageNotFound
	}
	switch KindOf(err) {
	case KindAuth:
		return http.StatusServiceUnavailable, MessageUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout, MessageTimeout
	case KindBadRequest:
		return http.StatusBadRequest, MessageRejected
	}
	return http.StatusInternalServerError, MessageUnexpected
}
