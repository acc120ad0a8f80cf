package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/storeroom/internal/model"
)

// TransactionFilter narrows ListTransactions. A zero Limit means no limit.
type TransactionFilter struct {
	Type   string
	ItemID *int64
	Limit  uint64
	Offset uint64
}

const transactionColumns = `t.id, t.item_id, t.type, t.quantity, t.receiver, t.expected_return_date,
	t.borrow_transaction_id, t.status, t.returned_at, t.notes, t.created_by, t.created_at, i.name, i.unit`

const transactionFrom = `transactions t JOIN items i ON i.id = t.item_id`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var receiver, status, notes sql.NullString
	err := row.Scan(&t.ID, &t.ItemID, &t.Type, &t.Quantity, &receiver, &t.ExpectedReturnDate,
		&t.BorrowTransactionID, &status, &t.ReturnedAt, &notes, &t.CreatedBy, &t.CreatedAt,
		&t.ItemName, &t.ItemUnit)
	if err != nil {
		return nil, err
	}
	t.Receiver = receiver.String
	t.Status = status.String
	t.Notes = notes.String
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateTransaction appends a ledger entry and returns it with its ID set.
func CreateTransaction(ctx context.Context, db *sql.DB, t *model.Transaction) (*model.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	result, err := conn(ctx, db).ExecContext(ctx,
		`INSERT INTO transactions (item_id, type, quantity, receiver, expected_return_date,
		                           borrow_transaction_id, status, returned_at, notes, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ItemID, t.Type, t.Quantity, nullString(t.Receiver), t.ExpectedReturnDate,
		t.BorrowTransactionID, nullString(t.Status), t.ReturnedAt, nullString(t.Notes), t.CreatedBy, t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating transaction: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transaction id: %w", err)
	}

	return GetTransaction(ctx, db, id)
}

// GetTransaction returns a ledger entry by ID, or nil if it does not exist.
func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*model.Transaction, error) {
	t, err := scanTransaction(conn(ctx, db).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM `+transactionFrom+` WHERE t.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// MarkReturned closes an open borrow. It fails with ErrConflict when the
// borrow was already returned.
func MarkReturned(ctx context.Context, db *sql.DB, borrowID int64, returnedAt time.Time) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`UPDATE transactions SET status = ?, returned_at = ?
		 WHERE id = ? AND type = ? AND status != ?`,
		model.BorrowReturned, returnedAt, borrowID, model.TransactionBorrow, model.BorrowReturned,
	)
	if err != nil {
		return fmt.Errorf("marking borrow returned: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking borrow returned: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("marking borrow %d returned: %w", borrowID, ErrConflict)
	}
	return nil
}

// ListTransactions returns ledger entries newest first.
func ListTransactions(ctx context.Context, db *sql.DB, f TransactionFilter) ([]model.Transaction, error) {
	query := sq.Select(transactionColumns).
		From(transactionFrom).
		OrderBy("t.created_at DESC", "t.id DESC")

	if f.Type != "" {
		query = query.Where(sq.Eq{"t.type": f.Type})
	}
	if f.ItemID != nil {
		query = query.Where(sq.Eq{"t.item_id": *f.ItemID})
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		if f.Limit == 0 {
			// SQLite only accepts OFFSET after LIMIT.
			query = query.Limit(1<<62 - 1)
		}
		query = query.Offset(f.Offset)
	}

	return queryTransactions(ctx, db, query, "listing transactions")
}

// ListActiveBorrows returns borrows that are not yet returned, newest first.
func ListActiveBorrows(ctx context.Context, db *sql.DB) ([]model.Transaction, error) {
	query := sq.Select(transactionColumns).
		From(transactionFrom).
		Where(sq.Eq{
			"t.type":   model.TransactionBorrow,
			"t.status": []string{model.BorrowPending, model.BorrowOverdue},
		}).
		OrderBy("t.created_at DESC", "t.id DESC")

	return queryTransactions(ctx, db, query, "listing active borrows")
}

func queryTransactions(ctx context.Context, db *sql.DB, query sq.SelectBuilder, op string) ([]model.Transaction, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	rows, err := conn(ctx, db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	txs := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
