package membership

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/validation"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyExists means a verified member already owns the email.
	ErrAlreadyExists = errors.New("member already exists")
	// ErrNotFound means no member matches the email or code.
	ErrNotFound = errors.New("member not found")
	// ErrTokenMissing means no token was supplied.
	ErrTokenMissing = errors.New("token missing")
	// ErrInvalidToken covers unknown, used and expired tokens alike.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrNotActivated means the member has not verified their email yet.
	ErrNotActivated = errors.New("member not activated")
)

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// FieldErrors returns the field messages of a *ValidationError in err's chain.
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// User-facing messages for lifecycle failures.
const (
	MessageAlreadyExists = "An account with this email already exists. Please log in instead."
	MessageNotFound      = "No account was found for this email."
	MessageTokenMissing  = "The verification link is missing its token."
	MessageInvalidToken  = "Invalid or expired verification link. Please try signing up again."
	MessageNotActivated  = "Please verify your email address before signing in."
	MessageDelivery      = "We couldn't send the email right now. Please try again shortly."
)

// UserMessage maps a lifecycle error to an HTTP status and a message safe to
// show users. Datastore failures fall back to store.UserMessage.
func UserMessage(err error) (int, string) {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, validation.Summary
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict, MessageAlreadyExists
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, MessageNotFound
	case errors.Is(err, ErrTokenMissing):
		return http.StatusBadRequest, MessageTokenMissing
	case errors.Is(err, ErrInvalidToken):
		return http.StatusBadRequest, MessageInvalidToken
	case errors.Is(err, ErrNotActivated):
		return http.StatusForbidden, MessageNotActivated
	case notify.IsDeliveryError(err):
		return http.StatusBadGateway, MessageDelivery
	}
	return store.UserMessage(err)
}
