package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Validation failures are rejected before any transaction opens.
var (
	ErrEmptyCart        = errors.New("order must contain at least one item")
	ErrInvalidQuantity  = errors.New("item quantity must be positive")
	ErrDuplicateProduct = errors.New("order contains the same product twice")
	ErrTotalMismatch    = errors.New("submitted total does not match line items")
)

// ErrConcurrencyConflict marks a checkout that lost a lock or serialization
// race after all retries. Nothing committed, so the caller may safely retry
// with identical input.
var ErrConcurrencyConflict = errors.New("concurrent update conflict")

// ErrOrderNotFound is returned by order reads for unknown ids.
var ErrOrderNotFound = errors.New("order not found")

// ErrUserNotFound is returned by user lookups for unknown usernames.
var ErrUserNotFound = errors.New("user not found")

// ProductNotFoundError aborts the whole checkout when a referenced product
// does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %d", e.ProductID)
}

// InsufficientStockError names the offending product and the shortfall.
// The whole checkout aborts with no partial stock decrement retained.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id=%d): requested=%d, available=%d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

// OrderNotFoundError carries the order id for API error payloads.
type OrderNotFoundError struct {
	OrderID uuid.UUID
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: %s", e.OrderID)
}

func (e *OrderNotFoundError) Unwrap() error { return ErrOrderNotFound }

// IsValidationError reports whether err belongs to the pre-transaction
// validation class.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrDuplicateProduct) ||
		errors.Is(err, ErrTotalMismatch)
}
