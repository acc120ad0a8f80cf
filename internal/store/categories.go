package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/storeroom/internal/model"
)

// CreateCategory creates a new category.
func CreateCategory(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	result, err := conn(ctx, db).ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?)`, name,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating category %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID, or nil if it does not exist.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := conn(ctx, db).QueryRowContext(ctx,
		`SELECT c.id, c.name, c.created_at,
		        (SELECT COUNT(*) FROM items i WHERE i.category_id = c.id AND i.deleted_at IS NULL)
		 FROM categories c WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.ItemCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := conn(ctx, db).QueryContext(ctx,
		`SELECT c.id, c.name, c.created_at,
		        (SELECT COUNT(*) FROM items i WHERE i.category_id = c.id AND i.deleted_at IS NULL)
		 FROM categories c ORDER BY c.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.ItemCount); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// RenameCategory changes a category's name.
func RenameCategory(ctx context.Context, db *sql.DB, id int64, name string) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ?`, name, id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("renaming category to %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("renaming category: %w", err)
	}
	return expectOne(result, "renaming category")
}

// DeleteCategory removes a category. Items in it keep existing with no category.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`DELETE FROM categories WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return expectOne(result, "deleting category")
}

func expectOne(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
