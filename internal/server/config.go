package server

import (
	"time"
)

type Config struct {
	Addr     string
	MongoURI string
	MongoDB  string

	UsersCollection    string
	SessionsCollection string

	// IdentityURL is the upstream endpoint that redeems one-time login
	// handles for an authenticated email/name/picture triple.
	IdentityURL string

	SessionTTL time.Duration

	// EncryptionKey is a base64-encoded 32-byte key for secret fields. When
	// empty a fresh key is generated at startup and previously encrypted
	// fields can no longer be decrypted.
	EncryptionKey string

	// CORSOrigins lists allowed origins; "*" echoes any request origin.
	CORSOrigins []string
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.UsersCollection == "" {
		c.UsersCollection = "users"
	}
	if c.SessionsCollection == "" {
		c.SessionsCollection = "user_sessions"
	}
	if c.IdentityURL == "" {
		c.IdentityURL = "https://demobackend.emergentagent.com/auth/v1/env/oauth/session-data"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}
