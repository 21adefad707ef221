package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusNotFound, KindNotFound},
		{http.StatusUnprocessableEntity, KindBadRequest},
		{http.StatusBadRequest, KindBadRequest},
		{http.StatusTooManyRequests, KindUnexpected},
		{http.StatusInternalServerError, KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, KindForStatus(tt.status))
		})
	}
}

func TestStoreError_IsNotFound(t *testing.T) {
	err := fmt.Errorf("find member: %w", NewStatusError(http.StatusNotFound, "NOT_FOUND"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))

	err = NewStatusError(http.StatusUnauthorized, "AUTHENTICATION_REQUIRED")
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "status 401")
}

func TestWrapTransport(t *testing.T) {
	assert.Nil(t, WrapTransport(nil))

	err := WrapTransport(fmt.Errorf("do request: %w", context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	err = WrapTransport(errors.New("connection refused"))
	assert.Equal(t, KindUnexpected, KindOf(err))

	orig := NewStatusError(http.StatusForbidden, "denied")
	assert.Same(t, orig, WrapTransport(orig))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{NewStatusError(401, "bad key"), 503, MessageUnavailable},
		{NewStatusError(403, "forbidden"), 503, MessageUnavailable},
		{NewStatusError(422, "bad field"), 400, MessageRejected},
		{NewStatusError(404, "gone"), 404, MessageNotFound},
		{fmt.Errorf("find: %w", ErrNotFound), 404, MessageNotFound},
		{WrapTransport(context.DeadlineExceeded), 504, MessageTimeout},
		{NewStatusError(500, "boom"), 500, MessageUnexpected},
		{errors.New("plain"), 500, MessageUnexpected},
	}
	for _, tt := range tests {
		status, msg := UserMessage(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.message, msg, tt.err.Error())
	}
}
