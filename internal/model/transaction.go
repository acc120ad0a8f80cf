package model

import (
	"errors"
	"time"
)

// Transaction is a ledger entry recording one stock movement.
type Transaction struct {
	ID                  int64      `json:"id"`
	ItemID              int64      `json:"item_id"`
	Type                string     `json:"type"`
	Quantity            int        `json:"quantity"`
	Receiver            string     `json:"receiver,omitempty"`
	ExpectedReturnDate  *time.Time `json:"expected_return_date,omitempty"`
	BorrowTransactionID *int64     `json:"borrow_transaction_id,omitempty"`
	Status              string     `json:"status,omitempty"`
	ReturnedAt          *time.Time `json:"returned_at,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	CreatedBy           *int64     `json:"created_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
	ItemUnit string `json:"item_unit,omitempty"`
}

// Transaction types.
const (
	TransactionIn     = "IN"
	TransactionOut    = "OUT"
	TransactionBorrow = "BORROW"
	TransactionReturn = "RETURN"
)

// Borrow statuses. Only BORROW transactions carry a status.
const (
	BorrowPending  = "PENDING"
	BorrowReturned = "RETURNED"
	BorrowOverdue  = "OVERDUE"
)

// MaxNotesLength is the longest accepted notes text, in characters.
const MaxNotesLength = 200

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionIn, TransactionOut, TransactionBorrow, TransactionReturn:
		return true
	}
	return false
}

// Validate checks the field set required or forbidden for the transaction's type.
func (t *Transaction) Validate() error {
	if t.Quantity < 1 {
		return errors.New("quantity must be at least 1")
	}
	if len([]rune(t.Notes)) > MaxNotesLength {
		return errors.New("notes exceed 200 characters")
	}

	switch t.Type {
	case TransactionIn:
		if t.Receiver != "" {
			return errors.New("receiver is not allowed for IN")
		}
	case TransactionOut:
		if t.Receiver == "" {
			return errors.New("receiver is required for OUT")
		}
	case TransactionBorrow:
		if t.Receiver == "" {
			return errors.New("receiver is required for BORROW")
		}
		if t.ExpectedReturnDate == nil {
			return errors.New("expected return date is required for BORROW")
		}
		if t.Status == "" {
			return errors.New("status is required for BORROW")
		}
	case TransactionReturn:
		if t.BorrowTransactionID == nil {
			return errors.New("borrow transaction id is required for RETURN")
		}
	default:
		return errors.New("unknown transaction type")
	}

	if t.Type != TransactionBorrow && t.Status != "" {
		return errors.New("status is only allowed for BORROW")
	}
	if t.Type != TransactionBorrow && t.ExpectedReturnDate != nil {
		return errors.New("expected return date is only allowed for BORROW")
	}
	return nil
}

// Active reports whether a BORROW transaction is still open.
func (t *Transaction) Active() bool {
	return t.Type == TransactionBorrow && (t.Status == BorrowPending || t.Status == BorrowOverdue)
}

// ActiveBorrow is an open BORROW with its due-date state computed at read time.
type ActiveBorrow struct {
	Transaction
	Overdue       bool `json:"overdue"`
	DaysRemaining int  `json:"days_remaining"`
}

// NewActiveBorrow computes the overdue flag and days remaining relative to now.
// A borrow is overdue once its expected return date lies before today.
func NewActiveBorrow(t Transaction, now time.Time) ActiveBorrow {
	ab := ActiveBorrow{Transaction: t}
	if t.ExpectedReturnDate == nil {
		return ab
	}
	today := StartOfDay(now)
	due := StartOfDay(*t.ExpectedReturnDate)
	ab.DaysRemaining = int(due.Sub(today).Hours() / 24)
	ab.Overdue = due.Before(today)
	return ab
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
