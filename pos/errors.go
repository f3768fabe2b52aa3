package pos

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a referenced record no longer exists.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientStock reports that the conditional decrement found less
	// stock than requested. The common case under contention, not exceptional.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCart is the hard precondition failure for Commit.
	ErrEmptyCart = errors.New("cart is empty")
)

// InvalidLineError reports a cart line that fails basic validation, naming the
// offending field. Always a caller mistake; the batch continues past it.
type InvalidLineError struct {
	Field  string
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid cart line: %s %s", e.Field, e.Reason)
}

// PersistError wraps a ledger write that failed after a successful
// reservation. The consumed stock is not restored; the line must be re-added
// to a fresh cart.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return "persist sale: " + e.Err.Error() }

func (e *PersistError) Unwrap() error { return e.Err }
