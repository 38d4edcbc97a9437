package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"plain", errors.New("boom"), ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", fmt.Errorf("wrapped: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique", &pq.Error{Code: "23505"}, ErrorClassPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert order: %w", &pq.Error{Code: "23505", Constraint: "orders_transaction_id_key"})

	assert.True(t, IsUniqueViolation(err, "orders_transaction_id_key"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "orders_order_number_key"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503", Constraint: "orders_transaction_id_key"}, "orders_transaction_id_key"))
	assert.False(t, IsUniqueViolation(errors.New("duplicate key value violates unique constraint"), ""))
}

func TestConstraintHelpers(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsCheckViolation(&pq.Error{Code: "23514"}))
	assert.True(t, IsLockNotAvailable(&pq.Error{Code: "55P03"}))
	assert.False(t, IsLockNotAvailable(nil))
}
