package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/storeroom/internal/model"
)

// Stock filter values for ListItems.
const (
	StockAll    = "all"
	StockLow    = "low"
	StockNormal = "normal"
)

// ItemParams holds the editable metadata of an item. Stock levels are not
// part of it; they only change through stock operations.
type ItemParams struct {
	Name        string
	CategoryID  *int64
	MinQuantity int
	Unit        string
	Borrowable  bool
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	CategoryID *int64
	Stock      string
	Query      string
}

const itemColumns = `i.id, i.name, i.category_id, i.quantity, i.min_quantity, i.unit, i.borrowable,
	i.borrowed_quantity, i.version, i.image IS NOT NULL, i.created_at, i.updated_at, i.deleted_at, c.name`

const itemFrom = `items i LEFT JOIN categories c ON c.id = i.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var categoryName sql.NullString
	err := row.Scan(&item.ID, &item.Name, &item.CategoryID, &item.Quantity, &item.MinQuantity, &item.Unit,
		&item.Borrowable, &item.BorrowedQuantity, &item.Version, &item.HasImage,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &categoryName)
	if err != nil {
		return nil, err
	}
	item.CategoryName = categoryName.String
	return item, nil
}

// CreateItem creates a new item with zero stock.
func CreateItem(ctx context.Context, db *sql.DB, p ItemParams) (*model.Item, error) {
	result, err := conn(ctx, db).ExecContext(ctx,
		`INSERT INTO items (name, category_id, min_quantity, unit, borrowable) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.CategoryID, p.MinQuantity, p.Unit, p.Borrowable,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(conn(ctx, db).QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM `+itemFrom+` WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns non-deleted items matching the filter, newest first.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	query := sq.Select(itemColumns).
		From(itemFrom).
		Where(sq.Eq{"i.deleted_at": nil}).
		OrderBy("i.created_at DESC", "i.id DESC")

	if f.CategoryID != nil {
		query = query.Where(sq.Eq{"i.category_id": *f.CategoryID})
	}
	switch f.Stock {
	case StockLow:
		query = query.Where("i.quantity <= i.min_quantity")
	case StockNormal:
		query = query.Where("i.quantity > i.min_quantity")
	}
	if f.Query != "" {
		query = query.Where(`i.name LIKE ? ESCAPE '\'`, escapeLike(f.Query))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building item query: %w", err)
	}

	rows, err := conn(ctx, db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's metadata.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, p ItemParams) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`UPDATE items SET name = ?, category_id = ?, min_quantity = ?, unit = ?, borrowable = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		p.Name, p.CategoryID, p.MinQuantity, p.Unit, p.Borrowable, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return expectOne(result, "updating item")
}

// UpdateItemStock writes new stock levels if the stored version still equals
// version, and bumps the version. A stale version yields ErrConflict.
func UpdateItemStock(ctx context.Context, db *sql.DB, id int64, quantity, borrowed int, version int64) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`UPDATE items SET quantity = ?, borrowed_quantity = ?, version = version + 1,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		quantity, borrowed, id, version,
	)
	if err != nil {
		return fmt.Errorf("updating item stock: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating item stock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("updating item %d at version %d: %w", id, version, ErrConflict)
	}
	return nil
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return expectOne(result, "deleting item")
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return expectOne(result, "setting item image")
}

// GetItemImage returns an item's image data and MIME type. Both are empty when
// the item has no image or does not exist.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := conn(ctx, db).QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
