package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/storeroom/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates an account. Usernames are unique among active accounts.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.User, error) {
	result, err := conn(ctx, db).ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating user %q: %w", username, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}
	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, including deleted accounts, or nil.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(conn(ctx, db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername returns the account with the given name, or nil. An
// active account wins over deleted ones with the same name.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(conn(ctx, db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?
		 ORDER BY deleted_at IS NOT NULL, id DESC LIMIT 1`, username,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}
	return u, nil
}

// ListUsers returns active users in creation order.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := conn(ctx, db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountAdmins returns the number of active admin accounts.
func CountAdmins(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := conn(ctx, db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ? AND deleted_at IS NULL`, model.RoleAdmin,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

// UpdateUser changes an active user's role.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role string) error {
	return updateActiveUser(ctx, db, id, "role", role)
}

// UpdateUserPassword replaces an active user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	return updateActiveUser(ctx, db, id, "password_hash", passwordHash)
}

// DeleteUser soft-deletes a user. The row stays so ledger entries keep
// their author.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	return updateActiveUser(ctx, db, id, "deleted_at", time.Now().UTC())
}

// updateActiveUser sets one column on an active user. column is never user input.
func updateActiveUser(ctx context.Context, db *sql.DB, id int64, column string, value any) error {
	result, err := conn(ctx, db).ExecContext(ctx,
		`UPDATE users SET `+column+` = ? WHERE id = ? AND deleted_at IS NULL`, value, id,
	)
	if err != nil {
		return fmt.Errorf("updating user %d %s: %w", id, column, err)
	}
	return expectOne(result, "updating user "+column)
}
