package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u := &User{
		ID:           "usr_1",
		Email:        "Ann@Example.com",
		PasswordHash: "$2a$12$hash",
		Name:         "Ann",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, store.Create(ctx, u))

	got, err := store.Get(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann@example.com", got.Email) // lowercased on create

	// Email lookup is case-insensitive.
	got, err = store.GetByEmail(ctx, "ANN@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "usr_1", got.ID)

	got.Name = "Ann B"
	require.NoError(t, store.Update(ctx, got))
	got2, _ := store.Get(ctx, "usr_1")
	assert.Equal(t, "Ann B", got2.Name)
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Create(ctx, &User{ID: "usr_1", Email: "ann@example.com"})
	err := store.Create(ctx, &User{ID: "usr_2", Email: "Ann@Example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = store.Update(ctx, &User{ID: "nonexistent"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStore_CopySemantics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u := &User{ID: "usr_1", Email: "ann@example.com", Name: "Ann"}
	_ = store.Create(ctx, u)

	got, _ := store.Get(ctx, "usr_1")
	got.Name = "mutated"

	again, _ := store.Get(ctx, "usr_1")
	assert.Equal(t, "Ann", again.Name)
}
