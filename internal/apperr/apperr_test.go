package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindInvalidTransition, http.StatusBadRequest},
		{KindInsufficientStock, http.StatusBadRequest},
		{KindProductUnavailable, http.StatusBadRequest},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
		{Kind("bogus"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := ErrInsufficientStock.WithMessage("product %d has %d left", 2, 4)
	wrapped := fmt.Errorf("reserve: %w", err)

	assert.ErrorIs(t, wrapped, ErrInsufficientStock)
	assert.NotErrorIs(t, wrapped, ErrProductUnavailable)
	assert.Equal(t, KindInsufficientStock, KindOf(wrapped))
	assert.Equal(t, "product 2 has 4 left", As(wrapped).Message)
}

func TestInternalWrapsUnknown(t *testing.T) {
	assert.Nil(t, Internal(nil))

	err := Internal(sql.ErrConnDone)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, KindInternal, KindOf(err))

	known := ErrForbidden.WithCause(errors.New("x"))
	assert.Same(t, known, Internal(known))
}

func TestValidationFields(t *testing.T) {
	err := Validation(map[string]string{"items": "must not be empty"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "must not be empty", err.Fields["items"])
	assert.Nil(t, ErrValidation.Fields)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
