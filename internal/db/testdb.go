package db

import (
	"context"
	"database/sql"
	"testing"
)

// NewTestDB returns a migrated in-memory database that is closed when the
// test ends.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}
