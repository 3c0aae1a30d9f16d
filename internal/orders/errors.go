package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStatusConflict      = errors.New("order status changed concurrently")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateReference  = errors.New("order reference already exists")
)

// VariantNotFoundError names the variant that could not be resolved.
type VariantNotFoundError struct {
	ID string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant not found: %s", e.ID)
}

func (e *VariantNotFoundError) Unwrap() error { return ErrVariantNotFound }

// TransitionError describes a rejected status change.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
