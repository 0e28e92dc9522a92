package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.ReplaceForTenant(ctx, "ten_1", map[string]bool{
		"analytics": true,
		"sso":       false,
	}))

	flags, err := store.ListForTenant(ctx, "ten_1")
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "analytics", flags[0].Key)
	assert.True(t, flags[0].Enabled)
	assert.Equal(t, "sso", flags[1].Key)
	assert.False(t, flags[1].Enabled)

	f, err := store.Get(ctx, "ten_1", "analytics")
	require.NoError(t, err)
	assert.True(t, f.Enabled)

	_, err = store.Get(ctx, "ten_1", "ghost")
	assert.ErrorIs(t, err, ErrFlagNotFound)

	_, err = store.Get(ctx, "ten_2", "analytics")
	assert.ErrorIs(t, err, ErrFlagNotFound)
}

func TestMemoryStore_ReplaceIsFullOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.ReplaceForTenant(ctx, "ten_1", map[string]bool{
		"analytics": false,
		"sso":       false,
	}))
	first, _ := store.Get(ctx, "ten_1", "analytics")

	// Upgrade flips analytics on; flag identity is preserved.
	require.NoError(t, store.ReplaceForTenant(ctx, "ten_1", map[string]bool{
		"analytics": true,
		"sso":       false,
	}))
	second, err := store.Get(ctx, "ten_1", "analytics")
	require.NoError(t, err)
	assert.True(t, second.Enabled)
	assert.Equal(t, first.ID, second.ID)

	flags, _ := store.ListForTenant(ctx, "ten_1")
	assert.Len(t, flags, 2)
}
