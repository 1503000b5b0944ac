package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrNotFound, "client not found")
	assert.Equal(t, "client not found", err.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Code, appErr.Code)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrUnauthorized, ""))
	assert.Equal(t, http.StatusUnauthorized, FromError(wrapped).Status)
	assert.Nil(t, FromError(nil))
}

func TestValidationCarriesDetails(t *testing.T) {
	err := Validation("invalid client payload", []FieldViolation{{Field: "gender", Reason: "must be one of [Male Female Other]"}})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	require.Len(t, err.Details, 1)
	assert.Equal(t, "gender", err.Details[0].Field)
	assert.Nil(t, ErrValidation.Details)
}
