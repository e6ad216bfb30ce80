package auth

import (
	"errors"
	"time"
)

// User is created on the first successful identity exchange for an email and
// mutated only to set or clear the app-lock hash. The hash never leaves the
// backend.
type User struct {
	ID          string    `bson:"id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Picture     string    `bson:"picture" json:"picture"`
	AppLockHash string    `bson:"app_lock_hash,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Session is a bearer record: valid iff its token is present in the store and
// the check time is strictly before ExpiresAt.
type Session struct {
	ID        string    `bson:"id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Token     string    `bson:"session_token" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

var (
	// ErrNotAuthenticated covers every unauthenticated shape uniformly: no
	// token, unknown token, expired token. Callers must not distinguish them.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidAppLock is returned when the app lock is not configured or the
	// supplied secret does not verify.
	ErrInvalidAppLock = errors.New("invalid app lock")

	// ErrIdentityExchange is returned when the upstream identity service
	// rejects a handle or is unreachable. The handle is single-use; no retry.
	ErrIdentityExchange = errors.New("identity exchange failed")

	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)
