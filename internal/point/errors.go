package point

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is matched by InvalidAmountError.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrBalanceCeilingExceeded is matched by CeilingExceededError.
	ErrBalanceCeilingExceeded = errors.New("balance ceiling exceeded")

	// ErrInsufficientBalance is matched by InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrStaleBalance is returned by an AtomicStore when the stored balance no
	// longer matches the value the mutation was computed from.
	ErrStaleBalance = errors.New("balance changed concurrently")
)

// InvalidAmountError rejects a negative credit or debit amount.
type InvalidAmountError struct {
	Amount int64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %d: must not be negative", e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// CeilingExceededError carries the total a credit would have produced.
type CeilingExceededError struct {
	Attempted int64
	Max       int64
}

func (e *CeilingExceededError) Error() string {
	return fmt.Sprintf("balance %d would exceed maximum %d", e.Attempted, e.Max)
}

func (e *CeilingExceededError) Unwrap() error { return ErrBalanceCeilingExceeded }

// InsufficientBalanceError carries the debit amount that could not be covered.
type InsufficientBalanceError struct {
	Requested int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("cannot use %d points: only %d available", e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }
