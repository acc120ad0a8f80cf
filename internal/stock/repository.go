package stock

import (
	"context"
	"time"

	"github.com/erazemk/storeroom/internal/events"
	"github.com/erazemk/storeroom/internal/model"
)

// ItemRepository reads and writes item stock levels.
type ItemRepository interface {
	// GetItem returns the item, soft-deleted or not, or ErrNotFound.
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	// UpdateItemStock stores item.Quantity and item.BorrowedQuantity if the
	// stored version still equals item.Version, else returns ErrConflict.
	UpdateItemStock(ctx context.Context, item *model.Item) error
}

// TransactionRepository appends and reads ledger entries.
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, t *model.Transaction) (*model.Transaction, error)
	// GetTransaction returns the entry or ErrNotFound.
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	// MarkReturned closes a pending borrow, or returns ErrConflict.
	MarkReturned(ctx context.Context, borrowID int64, returnedAt time.Time) error
}

// TxManager runs fn in one database transaction carried by ctx.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher receives an event after each committed operation.
type Publisher interface {
	Publish(ctx context.Context, event events.StockMovement) error
}
