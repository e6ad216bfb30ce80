package auth

import (
	"context"
	"fmt"
)

// AppLock manages the optional secondary secret gating vault access after the
// primary session is established. States per user: none or set. Every method
// takes an already-resolved user and touches only that user's record.
type AppLock struct {
	users  UserStore
	params ArgonParams
}

func NewAppLock(users UserStore) *AppLock {
	return &AppLock{users: users, params: DefaultArgon}
}

// Set hashes the secret and stores it, overwriting any existing hash.
// Re-setting an already-set lock is allowed and idempotent in shape.
func (l *AppLock) Set(ctx context.Context, user *User, password string) error {
	hash, err := HashPassword(l.params, password)
	if err != nil {
		return fmt.Errorf("hash app lock: %w", err)
	}
	return l.users.SetAppLockHash(ctx, user.ID, hash)
}

// Verify checks the secret against the stored hash without changing state.
// An unconfigured lock and a wrong secret both fail with ErrInvalidAppLock.
func (l *AppLock) Verify(ctx context.Context, user *User, password string) error {
	if user.AppLockHash == "" {
		return ErrInvalidAppLock
	}
	ok, err := VerifyPassword(password, user.AppLockHash)
	if err != nil || !ok {
		return ErrInvalidAppLock
	}
	return nil
}

// Remove clears the lock after the current secret verifies.
func (l *AppLock) Remove(ctx context.Context, user *User, password string) error {
	if err := l.Verify(ctx, user, password); err != nil {
		return err
	}
	return l.users.SetAppLockHash(ctx, user.ID, "")
}
