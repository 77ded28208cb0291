package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError("invalid input")

	assert.Equal(t, TypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Nil(t, err.Cause)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "invalid input")
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("user not found")

	assert.Equal(t, TypeNotFound, err.Type)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Contains(t, err.Error(), "user not found")
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("database connection failed")
	err := InternalError("failed to load leaderboard", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "failed to load leaderboard")
	assert.Contains(t, err.Error(), "database connection failed")
}

func TestExternalError(t *testing.T) {
	cause := fmt.Errorf("dial timeout")
	err := ExternalError("failed to open stream", cause)

	assert.Equal(t, TypeExternal, err.Type)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := InternalError("wrapper", cause)

	assert.ErrorIs(t, err, cause)
}

func TestError_WithContext(t *testing.T) {
	err := NotFoundError("stream not open").WithContext("twitter_id", "123")

	assert.Equal(t, "123", err.Context["twitter_id"])
}

func TestToResponse(t *testing.T) {
	err := ValidationError("limit must be a positive integer").WithContext("limit", "-1")

	resp := err.ToResponse()
	assert.Equal(t, "limit must be a positive integer", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "-1", resp.Context["limit"])
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("structured errors pass through", func(t *testing.T) {
		original := NotFoundError("user not found")
		assert.Same(t, original, AsStructuredError(original))
	})

	t.Run("wrapped structured errors are unwrapped", func(t *testing.T) {
		original := ValidationError("bad limit")
		wrapped := fmt.Errorf("handler failed: %w", original)
		assert.Same(t, original, AsStructuredError(wrapped))
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		err := AsStructuredError(errors.New("boom"))
		require.NotNil(t, err)
		assert.Equal(t, TypeInternal, err.Type)
		assert.Equal(t, "internal server error", err.Message)
	})
}
