package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/storeroom/internal/db"
)

func TestRunInTx_Commit(t *testing.T) {
	database := db.NewTestDB(t)
	tm := NewTxManager(database)
	ctx := context.Background()

	err := tm.RunInTx(ctx, func(ctx context.Context) error {
		_, err := CreateCategory(ctx, database, "Tools")
		return err
	})
	require.NoError(t, err)

	cats, err := ListCategories(ctx, database)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	database := db.NewTestDB(t)
	tm := NewTxManager(database)
	ctx := context.Background()
	sentinel := errors.New("business logic error")

	err := tm.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := CreateCategory(ctx, database, "Tools"); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	cats, err := ListCategories(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	database := db.NewTestDB(t)
	tm := NewTxManager(database)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = tm.RunInTx(ctx, func(ctx context.Context) error {
			CreateCategory(ctx, database, "Tools")
			panic("boom")
		})
	})

	cats, err := ListCategories(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestRunInTx_Nested(t *testing.T) {
	database := db.NewTestDB(t)
	tm := NewTxManager(database)
	ctx := context.Background()

	err := tm.RunInTx(ctx, func(ctx context.Context) error {
		return tm.RunInTx(ctx, func(ctx context.Context) error {
			_, err := CreateCategory(ctx, database, "Tools")
			return err
		})
	})
	require.NoError(t, err)

	cats, err := ListCategories(ctx, database)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
