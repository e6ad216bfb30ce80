package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Authenticator exchanges upstream login handles for local sessions and is
// the single gate every authenticated operation resolves its caller through.
type Authenticator struct {
	users    UserStore
	sessions SessionStore
	identity IdentityClient
	ttl      time.Duration

	// Now is the clock used for issuance and expiry checks; tests override it.
	Now func() time.Time
}

// DefaultSessionTTL is the fixed validity window of an issued session.
const DefaultSessionTTL = 7 * 24 * time.Hour

func NewAuthenticator(users UserStore, sessions SessionStore, identity IdentityClient, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Authenticator{
		users:    users,
		sessions: sessions,
		identity: identity,
		ttl:      ttl,
		Now:      time.Now,
	}
}

// ExchangeResult carries everything the transport layer needs after a
// successful handle exchange: who the caller is, the bearer token to set, and
// whether the client should route to the app-lock prompt.
type ExchangeResult struct {
	User         *User
	Token        string
	ExpiresAt    time.Time
	NewUser      bool
	NeedsAppLock bool
}

// ExchangeHandle redeems a one-time handle with the identity service, finds
// or creates the user for the asserted email, and issues a session whose
// token is the upstream token taken verbatim.
func (a *Authenticator) ExchangeHandle(ctx context.Context, handle string) (ExchangeResult, error) {
	data, err := a.identity.Exchange(ctx, handle)
	if err != nil {
		return ExchangeResult{}, fmt.Errorf("%w: %s", ErrIdentityExchange, err)
	}

	now := a.Now().UTC()
	email := normalizeEmail(data.Email)

	user, err := a.users.FindByEmail(ctx, email)
	newUser := false
	switch {
	case errors.Is(err, ErrUserNotFound):
		user = &User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      data.Name,
			Picture:   data.Picture,
			CreatedAt: now,
		}
		if err := a.users.Insert(ctx, user); err != nil {
			return ExchangeResult{}, fmt.Errorf("create user: %w", err)
		}
		newUser = true
	case err != nil:
		return ExchangeResult{}, fmt.Errorf("find user: %w", err)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     data.SessionToken,
		ExpiresAt: now.Add(a.ttl),
		CreatedAt: now,
	}
	if err := a.sessions.Insert(ctx, sess); err != nil {
		return ExchangeResult{}, fmt.Errorf("create session: %w", err)
	}

	return ExchangeResult{
		User:         user,
		Token:        sess.Token,
		ExpiresAt:    sess.ExpiresAt,
		NewUser:      newUser,
		NeedsAppLock: user.AppLockHash != "",
	}, nil
}

// ResolveToken maps a presented token to its user. Missing, unknown, and
// expired tokens are indistinguishable: all return ErrNotAuthenticated.
func (a *Authenticator) ResolveToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	sess, err := a.sessions.FindByToken(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	if !a.Now().Before(sess.ExpiresAt) {
		return nil, ErrNotAuthenticated
	}
	user, err := a.users.FindByID(ctx, sess.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Revoke deletes every session carrying the token. Tokens do not collide by
// construction upstream, so sibling sessions of the same user survive.
func (a *Authenticator) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.sessions.DeleteByToken(ctx, token)
}

// SessionTTL reports the configured validity window.
func (a *Authenticator) SessionTTL() time.Duration {
	return a.ttl
}
