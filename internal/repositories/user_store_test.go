package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillworks/tillguard/internal/models"
	"github.com/tillworks/tillguard/internal/repositories"
)

func TestUserStore_CreateAndGet(t *testing.T) {
	store := repositories.NewUserStore()

	created, err := store.Create(&models.User{
		Email:        "Alice@Example.com",
		Name:         "Alice",
		PasswordHash: "hash",
		Role:         "user",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice@example.com", created.Email, "email is normalized on create")

	got, err := store.GetByEmail("  ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	store := repositories.NewUserStore()

	_, err := store.Create(&models.User{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = store.Create(&models.User{Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserStore_GetUnknown(t *testing.T) {
	store := repositories.NewUserStore()

	_, err := store.GetByEmail("nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserStore_UpdatePasswordHash(t *testing.T) {
	store := repositories.NewUserStore()

	_, err := store.Create(&models.User{Email: "alice@example.com", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, store.UpdatePasswordHash("alice@example.com", "new"))

	got, err := store.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	assert.ErrorIs(t, store.UpdatePasswordHash("nobody@example.com", "x"), models.ErrNotFound)
}

func TestUserStore_GetReturnsCopy(t *testing.T) {
	store := repositories.NewUserStore()

	_, err := store.Create(&models.User{Email: "alice@example.com", Name: "Alice"})
	require.NoError(t, err)

	first, err := store.GetByEmail("alice@example.com")
	require.NoError(t, err)
	first.Name = "tampered"

	second, err := store.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", second.Name)
}
