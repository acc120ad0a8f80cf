// Package stock applies stock operations to items: add, issue, borrow and
// return. Each operation on an existing item runs under a per-item lock
// inside one database transaction, so an item's quantity and borrowed
// quantity only move together with the ledger entry that explains the change.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/events"
	"github.com/erazemk/storeroom/internal/model"
)

// Engine validates and applies stock operations.
type Engine struct {
	items     ItemRepository
	txs       TransactionRepository
	tm        TxManager
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
	locks     *keyedMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets where committed operations are announced.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given repositories.
func NewEngine(items ItemRepository, txs TransactionRepository, tm TxManager, opts ...Option) *Engine {
	e := &Engine{
		items:     items,
		txs:       txs,
		tm:        tm,
		publisher: events.NopPublisher{},
		log:       zap.NewNop(),
		now:       time.Now,
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func itemKey(id int64) string   { return "item:" + strconv.FormatInt(id, 10) }
func borrowKey(id int64) string { return "borrow:" + strconv.FormatInt(id, 10) }

// AddStock increases an item's quantity and records an IN entry.
func (e *Engine) AddStock(ctx context.Context, req AddRequest) (*Movement, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	unlock := e.locks.Lock(itemKey(req.ItemID))
	defer unlock()

	now := e.now().UTC()
	var result Movement
	err := e.tm.RunInTx(ctx, func(ctx context.Context) error {
		item, err := e.liveItem(ctx, req.ItemID)
		if err != nil {
			return err
		}

		item.Quantity += req.Quantity
		return e.apply(ctx, item, &model.Transaction{
			ItemID:    item.ID,
			Type:      model.TransactionIn,
			Quantity:  req.Quantity,
			CreatedBy: req.ActorID,
			CreatedAt: now,
		}, &result)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, &result, req.ActorID)
	return &result, nil
}

// CreateItem inserts a new item through req.Create and, for a positive
// quantity, records the opening stock as an IN entry in the same transaction.
// The result's Transaction is nil when no stock was received.
//
// No item lock is taken. The row is invisible to other operations until the
// commit, and waiting on a lock while holding the transaction would stall
// every operation queued for the database.
func (e *Engine) CreateItem(ctx context.Context, req NewItemRequest) (*Movement, error) {
	if req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Create == nil {
		return nil, errors.New("stock: NewItemRequest.Create is nil")
	}

	now := e.now().UTC()
	var result Movement
	err := e.tm.RunInTx(ctx, func(ctx context.Context) error {
		item, err := req.Create(ctx)
		if err != nil {
			return err
		}
		result.Item = item
		if req.Quantity == 0 {
			return nil
		}

		item.Quantity += req.Quantity
		return e.apply(ctx, item, &model.Transaction{
			ItemID:    item.ID,
			Type:      model.TransactionIn,
			Quantity:  req.Quantity,
			CreatedBy: req.ActorID,
			CreatedAt: now,
		}, &result)
	})
	if err != nil {
		return nil, err
	}

	if result.Transaction != nil {
		e.publish(ctx, &result, req.ActorID)
	}
	return &result, nil
}

// IssueStock decreases an item's quantity and records an OUT entry.
func (e *Engine) IssueStock(ctx context.Context, req IssueRequest) (*Movement, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	receiver := strings.TrimSpace(req.Receiver)
	if receiver == "" {
		return nil, ErrMissingReceiver
	}

	unlock := e.locks.Lock(itemKey(req.ItemID))
	defer unlock()

	now := e.now().UTC()
	var result Movement
	err := e.tm.RunInTx(ctx, func(ctx context.Context) error {
		item, err := e.liveItem(ctx, req.ItemID)
		if err != nil {
			return err
		}

		if req.Quantity > item.Quantity {
			return fmt.Errorf("%w: requested %d, on hand %d", ErrInsufficientStock, req.Quantity, item.Quantity)
		}
		// Units out on loan cannot be issued.
		if item.Quantity-req.Quantity < item.BorrowedQuantity {
			return fmt.Errorf("%w: requested %d, %d of %d are borrowed",
				ErrInsufficientStock, req.Quantity, item.BorrowedQuantity, item.Quantity)
		}

		item.Quantity -= req.Quantity
		return e.apply(ctx, item, &model.Transaction{
			ItemID:    item.ID,
			Type:      model.TransactionOut,
			Quantity:  req.Quantity,
			Receiver:  receiver,
			CreatedBy: req.ActorID,
			CreatedAt: now,
		}, &result)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, &result, req.ActorID)
	return &result, nil
}

// BorrowItem lends units of a borrowable item and records a pending BORROW entry.
func (e *Engine) BorrowItem(ctx context.Context, req BorrowRequest) (*Movement, error) {
	now := e.now().UTC()

	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	receiver := strings.TrimSpace(req.Receiver)
	if receiver == "" {
		return nil, ErrMissingReceiver
	}
	if req.ExpectedReturnDate == nil {
		return nil, ErrMissingReturnDate
	}
	due := model.StartOfDay(*req.ExpectedReturnDate)
	if due.Before(model.StartOfDay(now)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReturnDate, due.Format(time.DateOnly))
	}
	notes, err := cleanNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(itemKey(req.ItemID))
	defer unlock()

	var result Movement
	err = e.tm.RunInTx(ctx, func(ctx context.Context) error {
		item, err := e.liveItem(ctx, req.ItemID)
		if err != nil {
			return err
		}

		if !item.Borrowable {
			return fmt.Errorf("%w: %s", ErrNotBorrowable, item.Name)
		}
		if available := item.Available(); req.Quantity > available {
			return fmt.Errorf("%w: only %d available", ErrInsufficientAvailableStock, available)
		}

		item.BorrowedQuantity += req.Quantity
		return e.apply(ctx, item, &model.Transaction{
			ItemID:             item.ID,
			Type:               model.TransactionBorrow,
			Quantity:           req.Quantity,
			Receiver:           receiver,
			ExpectedReturnDate: &due,
			Status:             model.BorrowPending,
			Notes:              notes,
			CreatedBy:          req.ActorID,
			CreatedAt:          now,
		}, &result)
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, &result, req.ActorID)
	return &result, nil
}

// ReturnItem closes a borrow in full and records a RETURN entry. Returns are
// accepted for deleted items so their open borrows can still be closed.
func (e *Engine) ReturnItem(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	if req.BorrowTransactionID < 1 {
		return nil, ErrInvalidBorrowReference
	}
	notes, err := cleanNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	// Lock order is always borrow, then item.
	unlockBorrow := e.locks.Lock(borrowKey(req.BorrowTransactionID))
	defer unlockBorrow()

	borrow, err := e.borrow(ctx, req.BorrowTransactionID)
	if err != nil {
		return nil, err
	}

	unlockItem := e.locks.Lock(itemKey(borrow.ItemID))
	defer unlockItem()

	now := e.now().UTC()
	var result ReturnResult
	err = e.tm.RunInTx(ctx, func(ctx context.Context) error {
		// Re-read inside the transaction in case another process returned it.
		borrow, err := e.borrow(ctx, req.BorrowTransactionID)
		if err != nil {
			return err
		}
		if borrow.Status == model.BorrowReturned {
			return fmt.Errorf("%w: transaction %d", ErrAlreadyReturned, borrow.ID)
		}

		item, err := e.items.GetItem(ctx, borrow.ItemID)
		if err != nil {
			return err
		}
		if item.BorrowedQuantity < borrow.Quantity {
			return fmt.Errorf("%w: item %d has %d borrowed, borrow %d expects %d",
				ErrConflict, item.ID, item.BorrowedQuantity, borrow.ID, borrow.Quantity)
		}

		item.BorrowedQuantity -= borrow.Quantity
		if err := e.items.UpdateItemStock(ctx, item); err != nil {
			return err
		}
		if err := e.txs.MarkReturned(ctx, borrow.ID, now); err != nil {
			return err
		}

		borrowID := borrow.ID
		ret, err := e.txs.CreateTransaction(ctx, &model.Transaction{
			ItemID:              item.ID,
			Type:                model.TransactionReturn,
			Quantity:            borrow.Quantity,
			Receiver:            borrow.Receiver,
			BorrowTransactionID: &borrowID,
			Notes:               notes,
			CreatedBy:           req.ActorID,
			CreatedAt:           now,
		})
		if err != nil {
			return err
		}

		if result.Item, err = e.items.GetItem(ctx, item.ID); err != nil {
			return err
		}
		if result.Borrow, err = e.txs.GetTransaction(ctx, borrow.ID); err != nil {
			return err
		}
		result.Return = ret
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, &Movement{Item: result.Item, Transaction: result.Return}, req.ActorID)
	return &result, nil
}

// liveItem loads an item that has not been deleted.
func (e *Engine) liveItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := e.items.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Deleted() {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return item, nil
}

func (e *Engine) borrow(ctx context.Context, id int64) (*model.Transaction, error) {
	t, err := e.txs.GetTransaction(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: transaction %d does not exist", ErrInvalidBorrowReference, id)
	}
	if err != nil {
		return nil, err
	}
	if t.Type != model.TransactionBorrow {
		return nil, fmt.Errorf("%w: transaction %d is %s", ErrInvalidBorrowReference, id, t.Type)
	}
	return t, nil
}

// apply writes the item's new stock levels, appends entry, and fills result
// with the stored rows.
func (e *Engine) apply(ctx context.Context, item *model.Item, entry *model.Transaction, result *Movement) error {
	if item.BorrowedQuantity < 0 || item.BorrowedQuantity > item.Quantity {
		return fmt.Errorf("%w: quantity %d, borrowed %d", ErrConflict, item.Quantity, item.BorrowedQuantity)
	}
	if err := e.items.UpdateItemStock(ctx, item); err != nil {
		return err
	}

	created, err := e.txs.CreateTransaction(ctx, entry)
	if err != nil {
		return err
	}

	updated, err := e.items.GetItem(ctx, item.ID)
	if err != nil {
		return err
	}

	result.Item = updated
	result.Transaction = created
	return nil
}

// publish is called before the item lock is released, so events for one item
// leave in ledger order. The publisher's own timeouts bound the wait.
func (e *Engine) publish(ctx context.Context, m *Movement, actor *int64) {
	event := events.StockMovement{
		EventID:              uuid.NewString(),
		Type:                 m.Transaction.Type,
		ItemID:               m.Item.ID,
		TransactionID:        m.Transaction.ID,
		BorrowTransactionID:  m.Transaction.BorrowTransactionID,
		Quantity:             m.Transaction.Quantity,
		Receiver:             m.Transaction.Receiver,
		ItemQuantity:         m.Item.Quantity,
		ItemBorrowedQuantity: m.Item.BorrowedQuantity,
		ActorID:              actor,
		OccurredAt:           m.Transaction.CreatedAt,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.log.Error("publishing stock event",
			zap.String("event_id", event.EventID),
			zap.String("type", event.Type),
			zap.Int64("transaction_id", event.TransactionID),
			zap.Error(err),
		)
	}
}

func cleanNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if n := utf8.RuneCountInString(notes); n > model.MaxNotesLength {
		return "", fmt.Errorf("%w: %d characters, max %d", ErrNotesTooLong, n, model.MaxNotesLength)
	}
	return notes, nil
}
