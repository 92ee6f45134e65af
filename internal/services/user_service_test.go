package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petespantry/storefront/internal/repository/memstore"
)

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	users := NewUserService(store)

	created, err := users.EnsureUser(ctx, "auth0|abc", "pete@example.com")
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc", created.ID)
	assert.True(t, created.Balance.IsZero())

	again, err := users.EnsureUser(ctx, "auth0|abc", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pete@example.com", again.Email, "an existing user is returned unchanged")
}

func TestGetProfileNotFound(t *testing.T) {
	_, err := NewUserService(memstore.New()).GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	users := NewUserService(store)
	_, err := users.EnsureUser(ctx, "user-1", "pete@example.com")
	require.NoError(t, err)

	city := " Cape Town "
	first := "Pete"
	updated, err := users.UpdateProfile(ctx, "user-1", &UpdateProfileRequest{FirstName: &first, City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Pete", updated.FirstName)
	assert.Equal(t, "Cape Town", updated.City)
	assert.Empty(t, updated.LastName)

	unchanged, err := users.UpdateProfile(ctx, "user-1", &UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Cape Town", unchanged.City)

	_, err = users.UpdateProfile(ctx, "missing", &UpdateProfileRequest{FirstName: &first})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
