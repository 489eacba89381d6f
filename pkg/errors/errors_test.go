package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	err := Clone(ErrConflict, "event already completed")
	wrapped := fmt.Errorf("complete: %w", err)

	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrConflict.Code, got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Nil(t, FromError(nil))
}

func TestClonedSentinelMatchesWithIs(t *testing.T) {
	err := Clone(ErrNotFound, "care event not found")
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrConflict))
	assert.True(t, HasCode(fmt.Errorf("wrap: %w", err), ErrNotFound.Code))
}

func TestDependencyWrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Dependency(cause, "failed to load alerts")
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
