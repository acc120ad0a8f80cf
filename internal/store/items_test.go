package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/storeroom/internal/db"
	"github.com/erazemk/storeroom/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	cat, err := CreateCategory(ctx, database, "Tools")
	require.NoError(t, err)

	item, err := CreateItem(ctx, database, ItemParams{
		Name: "Drill", CategoryID: &cat.ID, MinQuantity: 2, Unit: model.UnitPieces, Borrowable: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Drill", item.Name)
	assert.Equal(t, "Tools", item.CategoryName)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, 2, item.MinQuantity)
	assert.True(t, item.Borrowable)
	assert.Equal(t, int64(1), item.Version)
	assert.False(t, item.HasImage)
	assert.Nil(t, item.DeletedAt)

	missing, err := GetItem(ctx, database, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tools, _ := CreateCategory(ctx, database, "Tools")
	drill, _ := CreateItem(ctx, database, ItemParams{Name: "Cordless Drill", CategoryID: &tools.ID, MinQuantity: 1, Unit: model.UnitPieces})
	_, _ = CreateItem(ctx, database, ItemParams{Name: "Cable 100%", Unit: model.UnitMeter})
	tape, _ := CreateItem(ctx, database, ItemParams{Name: "Tape", Unit: model.UnitBox})

	require.NoError(t, UpdateItemStock(ctx, database, drill.ID, 5, 0, drill.Version))
	require.NoError(t, UpdateItemStock(ctx, database, tape.ID, 3, 0, tape.Version))

	all, err := ListItems(ctx, database, ItemFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Tape", all[0].Name, "newest first")

	byCategory, err := ListItems(ctx, database, ItemFilter{CategoryID: &tools.ID})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, drill.ID, byCategory[0].ID)

	low, err := ListItems(ctx, database, ItemFilter{Stock: StockLow})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Cable 100%", low[0].Name)

	normal, err := ListItems(ctx, database, ItemFilter{Stock: StockNormal})
	require.NoError(t, err)
	assert.Len(t, normal, 2)

	search, err := ListItems(ctx, database, ItemFilter{Query: "drill"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, drill.ID, search[0].ID)

	literal, err := ListItems(ctx, database, ItemFilter{Query: "%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "Cable 100%", literal[0].Name)
}

func TestUpdateItemStockVersionCheck(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})
	require.NoError(t, err)

	require.NoError(t, UpdateItemStock(ctx, database, item.ID, 5, 0, item.Version))

	err = UpdateItemStock(ctx, database, item.ID, 7, 0, item.Version)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, item.Version+1, got.Version)
}

func TestUpdateItemStockRejectsBrokenInvariant(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})
	require.NoError(t, err)

	assert.Error(t, UpdateItemStock(ctx, database, item.ID, 2, 3, item.Version))
	assert.Error(t, UpdateItemStock(ctx, database, item.ID, -1, 0, item.Version))
}

func TestUpdateItemKeepsStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, ItemParams{Name: "Drill", Unit: model.UnitPieces})
	require.NoError(t, UpdateItemStock(ctx, database, item.ID, 4, 1, item.Version))

	require.NoError(t, UpdateItem(ctx, database, item.ID, ItemParams{Name: "Hammer Drill", MinQuantity: 1, Unit: model.UnitBox}))

	got, err := GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hammer Drill", got.Name)
	assert.Equal(t, model.UnitBox, got.Unit)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, 1, got.BorrowedQuantity)
}

func TestSoftDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, ItemParams{Name: "Delete Me", Unit: model.UnitPieces})
	require.NoError(t, DeleteItem(ctx, database, item.ID))

	items, err := ListItems(ctx, database, ItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	// Still fetchable by ID for history.
	got, err := GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Deleted())

	assert.ErrorIs(t, DeleteItem(ctx, database, item.ID), ErrNotFound)
	assert.ErrorIs(t, UpdateItem(ctx, database, item.ID, ItemParams{Name: "x", Unit: model.UnitPieces}), ErrNotFound)
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, ItemParams{Name: "Photo Item", Unit: model.UnitPieces})
	require.NoError(t, SetItemImage(ctx, database, item.ID, []byte("fake image data"), "image/png"))

	data, mime, err := GetItemImage(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "fake image data", string(data))
	assert.Equal(t, "image/png", mime)

	got, _ := GetItem(ctx, database, item.ID)
	assert.True(t, got.HasImage)
}
