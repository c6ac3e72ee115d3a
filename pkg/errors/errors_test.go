package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorHidesUnknownErrors(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestClonedErrorsMatchByCode(t *testing.T) {
	err := Validation("no fields to update")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "no fields to update", err.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Clone(ErrForbidden, "only employers can update jobs")
	appErr := FromError(wrapped)
	assert.Same(t, wrapped, appErr)
}
