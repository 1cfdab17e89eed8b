package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", Clone(ErrNotFound, "grade not found"))

	got := FromError(wrapped)
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "grade not found", got.Message)
}

func TestFromErrorFallsBackToInternal(t *testing.T) {
	got := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, sql.ErrConnDone.Error(), got.Message)
	assert.ErrorIs(t, got, sql.ErrConnDone)
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(errors.New("boom"), ErrConflict.Code, ErrConflict.Status, "School name already exists")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrForbidden, "only the author may edit")
	assert.Equal(t, "forbidden", ErrForbidden.Message)
	assert.Equal(t, "only the author may edit", clone.Message)
	assert.Nil(t, FromError(nil))
}
