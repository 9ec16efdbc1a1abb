package storage

import (
	"context"
	"errors"
	"testing"

	"ioclens/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_Users(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, &core.User{
		Email:    "analyst@example.com",
		Username: ptr("Analyst"),
		GoogleID: ptr("google-123"),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byID, err := store.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	byGoogle, err := store.GetUserByGoogleID(ctx, "google-123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byGoogle.ID)

	byEmail, err := store.GetUserByEmail(ctx, "analyst@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestSQLStore_UserNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUserByGoogleID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.True(t, core.IsNotFound(err))
}

func TestSQLStore_CreateUserRequiresEmail(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.CreateUser(context.Background(), &core.User{})
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestSQLStore_GoogleIDUnique(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &core.User{Email: "a@example.com", GoogleID: ptr("g-1")})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, &core.User{Email: "b@example.com", GoogleID: ptr("g-1")})
	assert.Error(t, err)
}
