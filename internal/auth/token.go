package auth

import (
	"net/http"
	"strings"
)

// SessionCookie is the name of the same-origin session cookie.
const SessionCookie = "session_token"

// TokenFromRequest extracts the presented session token. The cookie takes
// precedence over a bearer Authorization header; absent both, the caller is
// unauthenticated and the empty string is returned.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
