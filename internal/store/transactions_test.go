package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/storeroom/internal/db"
	"github.com/erazemk/storeroom/internal/model"
)

var ledgerNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)


func TestCreateAndGetTransaction(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})
	require.NoError(t, err)

	due := ledgerNow.AddDate(0, 0, 3)
	borrow, err := CreateTransaction(ctx, database, &model.Transaction{
		ItemID: item.ID, Type: model.TransactionBorrow, Quantity: 2, Receiver: "Ana",
		ExpectedReturnDate: &due, Status: model.BorrowPending, Notes: "site A", CreatedAt: ledgerNow,
	})
	require.NoError(t, err)

	assert.NotZero(t, borrow.ID)
	assert.Equal(t, "Drill", borrow.ItemName)
	assert.Equal(t, model.UnitPieces, borrow.ItemUnit)
	assert.Equal(t, "Ana", borrow.Receiver)
	assert.Equal(t, model.BorrowPending, borrow.Status)
	require.NotNil(t, borrow.ExpectedReturnDate)
	assert.True(t, due.Equal(*borrow.ExpectedReturnDate))
	assert.True(t, ledgerNow.Equal(borrow.CreatedAt))
	assert.Nil(t, borrow.ReturnedAt)
	assert.Nil(t, borrow.CreatedBy)

	missing, err := GetTransaction(ctx, database, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateTransactionValidates(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})

	_, err := CreateTransaction(ctx, database, &model.Transaction{
		ItemID: item.ID, Type: model.TransactionOut, Quantity: 1, CreatedAt: ledgerNow,
	})
	assert.Error(t, err, "OUT without receiver")

	txs, err := ListTransactions(ctx, database, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMarkReturnedOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})
	due := ledgerNow.AddDate(0, 0, 1)
	borrow, err := CreateTransaction(ctx, database, &model.Transaction{
		ItemID: item.ID, Type: model.TransactionBorrow, Quantity: 1, Receiver: "Ana",
		ExpectedReturnDate: &due, Status: model.BorrowPending, CreatedAt: ledgerNow,
	})
	require.NoError(t, err)

	returnedAt := ledgerNow.Add(time.Hour)
	require.NoError(t, MarkReturned(ctx, database, borrow.ID, returnedAt))
	assert.ErrorIs(t, MarkReturned(ctx, database, borrow.ID, returnedAt), ErrConflict)

	got, err := GetTransaction(ctx, database, borrow.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BorrowReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)
	assert.True(t, returnedAt.Equal(*got.ReturnedAt))
}

func TestListTransactionsOrderAndFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	drill, _ := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})
	tape, _ := CreateItem(ctx, database, ItemParams{Name: "Tape", Unit: model.UnitBox})

	// Same timestamp for all entries: order falls back to id.
	var ids []int64
	for _, entry := range []model.Transaction{
		{ItemID: drill.ID, Type: model.TransactionIn, Quantity: 5},
		{ItemID: tape.ID, Type: model.TransactionIn, Quantity: 2},
		{ItemID: drill.ID, Type: model.TransactionOut, Quantity: 1, Receiver: "Ana"},
	} {
		entry.CreatedAt = ledgerNow
		created, err := CreateTransaction(ctx, database, &entry)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	all, err := ListTransactions(ctx, database, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[1], all[1].ID)
	assert.Equal(t, ids[0], all[2].ID)

	ins, err := ListTransactions(ctx, database, TransactionFilter{Type: model.TransactionIn})
	require.NoError(t, err)
	assert.Len(t, ins, 2)

	history, err := ListTransactions(ctx, database, TransactionFilter{ItemID: &drill.ID})
	require.NoError(t, err)
	assert.Len(t, history, 2)

	page, err := ListTransactions(ctx, database, TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	tail, err := ListTransactions(ctx, database, TransactionFilter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, ids[0], tail[0].ID)
}

func TestListActiveBorrows(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})
	due := ledgerNow.AddDate(0, 0, 2)

	newBorrow := func(status string, at time.Time) *model.Transaction {
		b, err := CreateTransaction(ctx, database, &model.Transaction{
			ItemID: item.ID, Type: model.TransactionBorrow, Quantity: 1, Receiver: "Ana",
			ExpectedReturnDate: &due, Status: status, CreatedAt: at,
		})
		require.NoError(t, err)
		return b
	}

	pending := newBorrow(model.BorrowPending, ledgerNow)
	overdue := newBorrow(model.BorrowOverdue, ledgerNow.Add(time.Minute))
	returned := newBorrow(model.BorrowPending, ledgerNow.Add(2*time.Minute))
	require.NoError(t, MarkReturned(ctx, database, returned.ID, ledgerNow.Add(time.Hour)))

	active, err := ListActiveBorrows(ctx, database)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, overdue.ID, active[0].ID)
	assert.Equal(t, pending.ID, active[1].ID)
}
