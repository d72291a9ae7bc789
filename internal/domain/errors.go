package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPersistence       = errors.New("persistence failure")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")

	ErrEmptyCart         = fmt.Errorf("cart is empty: %w", ErrValidation)
	ErrCartAlreadyEmpty  = fmt.Errorf("cart is already empty: %w", ErrValidation)
	ErrNotInCart         = fmt.Errorf("item not found in cart: %w", ErrNotFound)
	ErrNoCheckoutHistory = fmt.Errorf("no checkout history available: %w", ErrNotFound)
)

// ValidationError carries a message that is safe to show to the shopper.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// StockError reports a reservation that would drive a product's quantity below zero.
// Available is the quantity observed when the adjustment was refused.
type StockError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// ProductError ties a failure to the product it happened on.
type ProductError struct {
	ProductID uint
	Name      string
	Err       error
}

func (e *ProductError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("product %d (%s): %v", e.ProductID, e.Name, e.Err)
	}
	return fmt.Sprintf("product %d: %v", e.ProductID, e.Err)
}

func (e *ProductError) Unwrap() error { return e.Err }

func ProductNotFound(id uint) error {
	return &ProductError{ProductID: id, Err: ErrNotFound}
}

// Persistence wraps a storage failure so callers can match ErrPersistence
// while keeping the driver error in the chain.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrPersistence, err))
}
