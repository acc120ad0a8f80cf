package stock

import "errors"

// Error kinds returned by engine operations. Details are attached with
// fmt.Errorf("%w: ...") so callers match them with errors.Is.
var (
	ErrNotFound                   = errors.New("not found")
	ErrInvalidQuantity            = errors.New("quantity must be a positive integer")
	ErrMissingReceiver            = errors.New("receiver is required")
	ErrMissingReturnDate          = errors.New("expected return date is required")
	ErrInvalidReturnDate          = errors.New("expected return date is in the past")
	ErrNotesTooLong               = errors.New("notes are too long")
	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrInsufficientAvailableStock = errors.New("insufficient available stock")
	ErrNotBorrowable              = errors.New("item is not borrowable")
	ErrInvalidBorrowReference     = errors.New("invalid borrow reference")
	ErrAlreadyReturned            = errors.New("borrow already returned")
	ErrConflict                   = errors.New("concurrent modification")
)
