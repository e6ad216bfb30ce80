package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keybox/internal/auth"
	"keybox/internal/vault"
)

type scriptedIdentity struct {
	mu   sync.Mutex
	data auth.IdentityData
	err  error
}

func (s *scriptedIdentity) Exchange(ctx context.Context, handle string) (auth.IdentityData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return auth.IdentityData{}, s.err
	}
	return s.data, nil
}

func (s *scriptedIdentity) set(data auth.IdentityData, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data, s.err = data, err
}

func newTestServer(t *testing.T) (*Server, *vault.MemoryEntryStore, *scriptedIdentity) {
	t.Helper()
	ident := &scriptedIdentity{data: auth.IdentityData{
		Email:        "alice@example.com",
		Name:         "Alice",
		Picture:      "https://example.com/alice.png",
		SessionToken: "tok-alice",
	}}
	entries := vault.NewMemoryEntryStore()
	s, err := NewWithStores(Config{}, Stores{
		Users:    auth.NewMemoryUserStore(),
		Sessions: auth.NewMemorySessionStore(),
		Entries:  entries,
		Identity: ident,
	})
	require.NoError(t, err)
	return s, entries, ident
}

func doJSON(s *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// login runs the exchange for the identity currently scripted and returns
// the session token.
func login(t *testing.T, s *Server) string {
	t.Helper()
	w := doJSON(s, http.MethodPost, "/api/auth/session", map[string]string{"session_id": "handle"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func TestExchangeSetsCookieAndReturnsUser(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/auth/session", map[string]string{"session_id": "handle"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "tok-alice", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["needs_app_lock"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	// The app-lock hash must never be serialized.
	_, leaked := user["app_lock_hash"]
	assert.False(t, leaked)
}

func TestExchangeFailures(t *testing.T) {
	s, _, ident := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/auth/session", map[string]string{"session_id": "   "}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ident.set(auth.IdentityData{}, errors.New("upstream said no"))
	w = doJSON(s, http.MethodPost, "/api/auth/session", map[string]string{"session_id": "handle"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(s, http.MethodGet, "/api/auth/session", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestEndToEndVaultFlow(t *testing.T) {
	s, raw, _ := newTestServer(t)
	token := login(t, s)

	// Create a website credential.
	w := doJSON(s, http.MethodPost, "/api/websites", map[string]string{
		"name":     "GitHub",
		"link":     "https://GitHub.com",
		"purpose":  "code hosting",
		"login_id": "alice",
		"password": "secret1",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody(t, w)
	assert.Equal(t, "secret1", created["password"])
	id := created["id"].(string)

	// At rest the password is ciphertext.
	stored, ok := raw.Raw(vault.Websites.Collection, id)
	require.True(t, ok)
	assert.NotEqual(t, "secret1", stored.Fields["password"])

	// Search matches the link case-insensitively and decrypts on the way out.
	w = doJSON(s, http.MethodGet, "/api/websites?search=git", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "secret1", list[0]["password"])

	w = doJSON(s, http.MethodGet, "/api/websites?search=nomatch", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)

	// Full-replace update drops the omitted login_id and re-encrypts.
	w = doJSON(s, http.MethodPut, "/api/websites/"+id, map[string]string{
		"name":     "GitHub",
		"link":     "https://github.com",
		"purpose":  "code hosting",
		"password": "secret2",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody(t, w)
	assert.Equal(t, "secret2", updated["password"])
	_, hasLogin := updated["login_id"]
	assert.False(t, hasLogin)

	// Delete, then the collection is empty.
	w = doJSON(s, http.MethodDelete, "/api/websites/"+id, nil, token)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(s, http.MethodDelete, "/api/websites/"+id, nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Logout revokes the session and clears the cookie.
	w = doJSON(s, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	w = doJSON(s, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnershipOpacityOverHTTP(t *testing.T) {
	s, _, ident := newTestServer(t)
	tokenA := login(t, s)

	w := doJSON(s, http.MethodPost, "/api/notes", map[string]string{
		"title": "wifi", "content": "hunter2",
	}, tokenA)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["id"].(string)

	ident.set(auth.IdentityData{
		Email: "bob@example.com", Name: "Bob", SessionToken: "tok-bob",
	}, nil)
	tokenB := login(t, s)

	// B sees nothing of A's, and mutating A's id reads as not found.
	w = doJSON(s, http.MethodGet, "/api/notes", nil, tokenB)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)

	w = doJSON(s, http.MethodPut, "/api/notes/"+id, map[string]string{
		"title": "stolen", "content": "x",
	}, tokenB)
	assert.Equal(t, http.StatusNotFound, w.Code)
	notFoundMsg := strings.TrimSpace(w.Body.String())

	w = doJSON(s, http.MethodPut, "/api/notes/does-not-exist", map[string]string{
		"title": "stolen", "content": "x",
	}, tokenB)
	assert.Equal(t, http.StatusNotFound, w.Code)
	// "Not yours" and "doesn't exist" are byte-identical responses.
	assert.Equal(t, notFoundMsg, strings.TrimSpace(w.Body.String()))

	w = doJSON(s, http.MethodDelete, "/api/notes/"+id, nil, tokenB)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A's note survived all of it.
	w = doJSON(s, http.MethodGet, "/api/notes", nil, tokenA)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "wifi", list[0]["title"])
}

func TestAppLockOverHTTP(t *testing.T) {
	s, _, _ := newTestServer(t)
	token := login(t, s)

	w := doJSON(s, http.MethodPost, "/api/auth/set-app-lock", map[string]string{"password": "1234"}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(s, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["needs_app_lock"])

	w = doJSON(s, http.MethodPost, "/api/auth/verify-app-lock", map[string]string{"password": "wrong"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(s, http.MethodPost, "/api/auth/verify-app-lock", map[string]string{"password": "1234"}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(s, http.MethodDelete, "/api/auth/remove-app-lock", map[string]string{"password": "wrong"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(s, http.MethodDelete, "/api/auth/remove-app-lock", map[string]string{"password": "1234"}, token)
	require.Equal(t, http.StatusOK, w.Code)

	// No lock configured anymore: verify fails again.
	w = doJSON(s, http.MethodPost, "/api/auth/verify-app-lock", map[string]string{"password": "1234"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(s, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["needs_app_lock"])
}

func TestUnauthenticatedRequests(t *testing.T) {
	s, _, _ := newTestServer(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/set-app-lock"},
		{http.MethodGet, "/api/websites"},
		{http.MethodPost, "/api/apps"},
		{http.MethodDelete, "/api/notes/some-id"},
	}
	for _, p := range paths {
		w := doJSON(s, p.method, p.path, map[string]string{"password": "x"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)

		w = doJSON(s, p.method, p.path, map[string]string{"password": "x"}, "bogus-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s with bad token", p.method, p.path)
	}
}

func TestCookieTakesPrecedenceOverBearer(t *testing.T) {
	s, _, _ := newTestServer(t)
	token := login(t, s)

	// Valid cookie + garbage bearer header: cookie wins, request succeeds.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Bearer alone works as the fallback.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutWithoutSessionIsNoOp(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	for _, p := range []string{"/health", "/api/health"} {
		w := doJSON(s, http.MethodGet, p, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	}
}

func TestPreflightAndCORSHeaders(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/websites", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCreateValidation(t *testing.T) {
	s, _, _ := newTestServer(t)
	token := login(t, s)

	w := doJSON(s, http.MethodPost, "/api/websites", map[string]string{"name": "only a name"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/websites", strings.NewReader("not json"))
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	w2 := httptest.NewRecorder()
	s.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}
