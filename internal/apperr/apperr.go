// Package apperr defines the error taxonomy returned by core operations.
// Every failure has a stable Kind, a machine-readable Code and a message
// safe to show to the caller. Storage errors are carried as Cause only.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindUnauthenticated    Kind = "unauthenticated"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindInvalidTransition  Kind = "invalid_transition"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindProductUnavailable Kind = "product_unavailable"
	KindInternal           Kind = "internal"
)

func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidTransition, KindInsufficientStock, KindProductUnavailable:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Fields holds per-field validation messages.
	Fields map[string]string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so a sentinel matches any error built from it.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithCause returns a copy wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrValidation         = New(KindValidation, "validation_failed", "request is invalid")
	ErrUnauthenticated    = New(KindUnauthenticated, "unauthenticated", "authentication required")
	ErrForbidden          = New(KindForbidden, "forbidden", "not allowed to act on this resource")
	ErrOrderNotFound      = New(KindNotFound, "order_not_found", "order not found")
	ErrProductNotFound    = New(KindNotFound, "product_not_found", "product not found")
	ErrUserNotFound       = New(KindNotFound, "user_not_found", "user not found")
	ErrDuplicateTxID      = New(KindConflict, "duplicate_transaction_id", "transaction id is already used by another order")
	ErrOrderNotClaimable  = New(KindConflict, "order_not_claimable", "order is not available for claim")
	ErrStaleProduct       = New(KindConflict, "stale_product_version", "product was modified concurrently")
	ErrStockLocked        = New(KindConflict, "stock_locked", "product stock is being updated, try again")
	ErrInvalidTransition  = New(KindInvalidTransition, "invalid_transition", "status transition is not allowed")
	ErrInsufficientStock  = New(KindInsufficientStock, "insufficient_stock", "insufficient stock")
	ErrProductUnavailable = New(KindProductUnavailable, "product_unavailable", "product is not available")
	ErrInternal           = New(KindInternal, "internal", "internal error")
)

// ErrCartProductNotFound shares the product_not_found code but is a bad
// request: the product is named in the body, not the path.
var ErrCartProductNotFound = New(KindValidation, ErrProductNotFound.Code, "cart references an unknown product")

// Validation builds a validation error from per-field messages.
func Validation(fields map[string]string) *Error {
	e := *ErrValidation
	e.Fields = fields
	return &e
}

// Internal wraps an unexpected failure. Errors already in the taxonomy pass through.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrInternal.WithCause(err)
}

// KindOf returns the kind of err, KindInternal for anything outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the taxonomy error, wrapping unknowns as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}
