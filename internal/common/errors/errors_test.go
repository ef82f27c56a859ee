// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsCarryHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"validation", NewValidationError("bad input", "field x"), ErrCodeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("Submission", "id"), ErrCodeNotFound, http.StatusNotFound},
		{"forbidden", NewForbiddenError("role mismatch"), ErrCodeForbidden, http.StatusForbidden},
		{"conflict", NewConflictError("already converted", ""), ErrCodeConflict, http.StatusBadRequest},
		{"upstream", NewUpstreamError("storage", errors.New("disk full")), ErrCodeUpstream, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.True(t, IsCode(tt.err, tt.code))
		})
	}
}

func TestFromErrorNormalizes(t *testing.T) {
	app := NewNotFoundError("Client", "c1")
	assert.Same(t, app, FromError(app))

	wrapped := FromError(errors.New("boom"))
	assert.Equal(t, ErrCodeInternal, wrapped.Code)
	assert.Equal(t, http.StatusInternalServerError, wrapped.HTTPStatus)

	assert.Nil(t, FromError(nil))
}

func TestPublicMessageMasksInProduction(t *testing.T) {
	up := NewUpstreamError("s3", errors.New("secret internals"))
	assert.Equal(t, "Internal server error", up.PublicMessage(true))
	assert.Contains(t, up.PublicMessage(false), "s3")

	val := NewValidationError("Invalid submission", "phone too short")
	assert.Equal(t, "Invalid submission: phone too short", val.PublicMessage(true))
}
