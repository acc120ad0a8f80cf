package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/stock"
)

// StockRepository exposes items and the ledger to the stock engine.
type StockRepository struct {
	db *sql.DB
}

// NewStockRepository creates a StockRepository over db.
func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := GetItem(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %d", stock.ErrNotFound, id)
	}
	return item, nil
}

func (r *StockRepository) UpdateItemStock(ctx context.Context, item *model.Item) error {
	err := UpdateItemStock(ctx, r.db, item.ID, item.Quantity, item.BorrowedQuantity, item.Version)
	return mapConflict(err)
}

func (r *StockRepository) CreateTransaction(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	created, err := CreateTransaction(ctx, r.db, t)
	return created, mapConflict(err)
}

func (r *StockRepository) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	t, err := GetTransaction(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: transaction %d", stock.ErrNotFound, id)
	}
	return t, nil
}

func (r *StockRepository) MarkReturned(ctx context.Context, borrowID int64, returnedAt time.Time) error {
	return mapConflict(MarkReturned(ctx, r.db, borrowID, returnedAt))
}

func mapConflict(err error) error {
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: %v", stock.ErrConflict, err)
	}
	return err
}
