package stock

import (
	"context"
	"time"

	"github.com/erazemk/storeroom/internal/model"
)

// AddRequest receives units into stock.
type AddRequest struct {
	ItemID   int64
	Quantity int
	ActorID  *int64
}

// NewItemRequest creates an item and receives its opening stock.
type NewItemRequest struct {
	// Create inserts the item row. It runs inside the engine's transaction.
	Create   func(ctx context.Context) (*model.Item, error)
	Quantity int
	ActorID  *int64
}

// IssueRequest hands units out permanently.
type IssueRequest struct {
	ItemID   int64
	Quantity int
	Receiver string
	ActorID  *int64
}

// BorrowRequest lends units out until ExpectedReturnDate.
type BorrowRequest struct {
	ItemID             int64
	Quantity           int
	Receiver           string
	ExpectedReturnDate *time.Time
	Notes              string
	ActorID            *int64
}

// ReturnRequest closes an open borrow.
type ReturnRequest struct {
	BorrowTransactionID int64
	Notes               string
	ActorID             *int64
}

// Movement is the outcome of add, issue and borrow.
type Movement struct {
	Item        *model.Item        `json:"item"`
	Transaction *model.Transaction `json:"transaction"`
}

// ReturnResult is the outcome of a return.
type ReturnResult struct {
	Item   *model.Item        `json:"item"`
	Borrow *model.Transaction `json:"borrow_transaction"`
	Return *model.Transaction `json:"return_transaction"`
}
