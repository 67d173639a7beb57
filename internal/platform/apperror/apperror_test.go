package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{NewValidationError("bad"), http.StatusUnprocessableEntity},
		{NewNotFoundError("booking", "1"), http.StatusNotFound},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewUnauthorizedError("who"), http.StatusUnauthorized},
		{NewConflictError("taken"), http.StatusConflict},
		{NewInvalidStateError("cancelled", "paid"), http.StatusConflict},
		{NewUpstreamError("gateway", errors.New("timeout")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestKindOfUnwrapsAndDetails(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("create booking: %w", NewUpstreamError("gateway down", cause).WithDetail("bookingId", "b-1"))

	assert.True(t, Is(err, KindUpstreamFailure))
	assert.ErrorIs(t, err, cause)

	var appErr *Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "b-1", appErr.Details["bookingId"])

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindInternal))
}
