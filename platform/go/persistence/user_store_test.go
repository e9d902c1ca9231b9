package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, store *UserStore, email string) User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), CreateUserParams{
		UserID:         uuid.New(),
		TenantID:       uuid.NewString(),
		Email:          email,
		CredentialHash: "$2a$10$abcdefghijklmnopqrstuv",
	})
	require.NoError(t, err)
	return user
}

func TestUserStoreCreateValidation(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	store, err := NewUserStore(pool)
	require.NoError(t, err)

	_, err = store.CreateUser(context.Background(), CreateUserParams{UserID: uuid.New()})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "tenantId")
	require.Contains(t, validationErr.Fields, "email")
	require.Contains(t, validationErr.Fields, "password")
}

func TestUserStoreCreateAndLookup(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	store, err := NewUserStore(pool)
	require.NoError(t, err)

	email := fmt.Sprintf("%s@example.com", uuid.NewString())
	created := createTestUser(t, store, email)
	require.Equal(t, 0, created.FailedLogins)
	require.False(t, created.AccountLocked)

	byEmail, err := store.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	require.Equal(t, created.UserID, byEmail.UserID)

	byID, err := store.GetUser(context.Background(), created.UserID)
	require.NoError(t, err)
	require.Equal(t, email, byID.Email)

	_, err = store.CreateUser(context.Background(), CreateUserParams{
		UserID:         uuid.New(),
		TenantID:       created.TenantID,
		Email:          email,
		CredentialHash: created.CredentialHash,
	})
	require.ErrorIs(t, err, ErrUserConflict)
}

func TestUserStoreFailedLoginCounter(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	store, err := NewUserStore(pool)
	require.NoError(t, err)

	user := createTestUser(t, store, fmt.Sprintf("%s@example.com", uuid.NewString()))

	for i := 1; i <= 5; i++ {
		updated, err := store.RecordFailedLogin(context.Background(), user.UserID, 5)
		require.NoError(t, err)
		require.Equal(t, i, updated.FailedLogins)
		require.False(t, updated.AccountLocked)
	}

	locked, err := store.RecordFailedLogin(context.Background(), user.UserID, 5)
	require.NoError(t, err)
	require.Equal(t, 6, locked.FailedLogins)
	require.True(t, locked.AccountLocked)

	reset, err := store.ResetLoginFailures(context.Background(), user.UserID)
	require.NoError(t, err)
	require.Equal(t, 0, reset.FailedLogins)
	require.False(t, reset.AccountLocked)
}

func TestUserStoreDelete(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	store, err := NewUserStore(pool)
	require.NoError(t, err)

	user := createTestUser(t, store, fmt.Sprintf("%s@example.com", uuid.NewString()))

	deleted, err := store.DeleteUser(context.Background(), user.UserID)
	require.NoError(t, err)
	require.Equal(t, user.UserID, deleted.UserID)

	_, err = store.GetUser(context.Background(), user.UserID)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.DeleteUser(context.Background(), user.UserID)
	require.ErrorIs(t, err, ErrUserNotFound)
}
