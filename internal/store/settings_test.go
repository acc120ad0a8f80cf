package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/storeroom/internal/db"
)

func TestJWTSecretIsStable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	again, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestSettingUpsert(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, ok, err := GetSetting(ctx, database, "bootstrapped")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetSetting(ctx, database, "bootstrapped", "1"))
	require.NoError(t, SetSetting(ctx, database, "bootstrapped", "2"))

	value, ok, err := GetSetting(ctx, database, "bootstrapped")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", value)
}
