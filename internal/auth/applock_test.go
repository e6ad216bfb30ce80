package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockFixture(t *testing.T) (*AppLock, *MemoryUserStore, *User) {
	t.Helper()
	users := NewMemoryUserStore()
	u := &User{ID: "u1", Email: "a@b.c", Name: "A"}
	require.NoError(t, users.Insert(context.Background(), u))
	return NewAppLock(users), users, u
}

// reload refreshes the caller's view of the user, the way a new request
// resolves it from the store.
func reload(t *testing.T, users *MemoryUserStore, id string) *User {
	t.Helper()
	u, err := users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestAppLockLifecycle(t *testing.T) {
	ctx := context.Background()
	lock, users, u := lockFixture(t)

	// Verify before any lock is configured fails.
	assert.ErrorIs(t, lock.Verify(ctx, u, "1234"), ErrInvalidAppLock)

	require.NoError(t, lock.Set(ctx, u, "1234"))
	u = reload(t, users, u.ID)
	assert.NotEmpty(t, u.AppLockHash)
	assert.NotEqual(t, "1234", u.AppLockHash)

	assert.ErrorIs(t, lock.Verify(ctx, u, "wrong"), ErrInvalidAppLock)
	assert.NoError(t, lock.Verify(ctx, u, "1234"))

	// Remove requires the current secret.
	assert.ErrorIs(t, lock.Remove(ctx, u, "wrong"), ErrInvalidAppLock)
	require.NoError(t, lock.Remove(ctx, u, "1234"))

	u = reload(t, users, u.ID)
	assert.Empty(t, u.AppLockHash)
	assert.ErrorIs(t, lock.Verify(ctx, u, "1234"), ErrInvalidAppLock)
}

func TestAppLockResetOverwrites(t *testing.T) {
	ctx := context.Background()
	lock, users, u := lockFixture(t)

	require.NoError(t, lock.Set(ctx, u, "first"))
	require.NoError(t, lock.Set(ctx, u, "second"))

	u = reload(t, users, u.ID)
	assert.ErrorIs(t, lock.Verify(ctx, u, "first"), ErrInvalidAppLock)
	assert.NoError(t, lock.Verify(ctx, u, "second"))
}
