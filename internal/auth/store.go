package auth

import "context"

// UserStore persists users keyed by opaque id, with email as the identity
// asserted by the upstream exchange.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, u *User) error
	// SetAppLockHash replaces the stored app-lock hash; an empty hash clears it.
	SetAppLockHash(ctx context.Context, userID, hash string) error
}

// SessionStore persists bearer sessions keyed by their token value.
type SessionStore interface {
	Insert(ctx context.Context, s *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	// DeleteByToken removes every session carrying the token.
	DeleteByToken(ctx context.Context, token string) error
}
