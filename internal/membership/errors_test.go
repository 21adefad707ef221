package membership

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/store"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &ValidationError{Fields: map[string]string{"email": "bad"}}, http.StatusBadRequest, "Please correct the highlighted fields."},
		{"exists", ErrAlreadyExists, http.StatusConflict, MessageAlreadyExists},
		{"invalid token", fmt.Errorf("verify: %w", ErrInvalidToken), http.StatusBadRequest, MessageInvalidToken},
		{"not activated", ErrNotActivated, http.StatusForbidden, MessageNotActivated},
		{"delivery", fmt.Errorf("send: %w", &notify.DeliveryError{Err: errors.New("x")}), http.StatusBadGateway, MessageDelivery},
		{"store auth", fmt.Errorf("find: %w", store.NewStatusError(401, "bad key")), http.StatusServiceUnavailable, store.MessageUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, store.MessageUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := UserMessage(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, msg)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "validation failed: a: one; b: two", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
}
