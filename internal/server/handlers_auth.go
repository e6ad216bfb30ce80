package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"keybox/internal/auth"
)

type exchangeReq struct {
	SessionID string `json:"session_id"`
}

type appLockReq struct {
	Password string `json:"password"`
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlExchange.allow(getClientIP(r)) {
		tooMany(w, 60)
		return
	}

	var req exchangeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	handle := strings.TrimSpace(req.SessionID)
	if handle == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}

	res, err := s.auth.ExchangeHandle(r.Context(), handle)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(s.auth.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	writeJSON(w, userPayload(res.User))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, err := s.requireUser(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, userPayload(user))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Revoking with no valid session is a no-op, not an error.
	if token := auth.TokenFromRequest(r); token != "" {
		if err := s.auth.Revoke(r.Context(), token); err != nil {
			s.writeErr(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	writeJSON(w, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleSetAppLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, req, ok := s.appLockRequest(w, r)
	if !ok {
		return
	}
	if err := s.lock.Set(r.Context(), user, req.Password); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "App lock set successfully"})
}

func (s *Server) handleVerifyAppLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, req, ok := s.appLockRequest(w, r)
	if !ok {
		return
	}
	if err := s.lock.Verify(r.Context(), user, req.Password); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "App lock verified"})
}

func (s *Server) handleRemoveAppLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, req, ok := s.appLockRequest(w, r)
	if !ok {
		return
	}
	if err := s.lock.Remove(r.Context(), user, req.Password); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "App lock removed"})
}

// appLockRequest authenticates the caller and decodes the password body
// shared by the three app-lock handlers. It writes the response on failure.
func (s *Server) appLockRequest(w http.ResponseWriter, r *http.Request) (*auth.User, appLockReq, bool) {
	user, err := s.requireUser(r)
	if err != nil {
		s.writeErr(w, err)
		return nil, appLockReq{}, false
	}
	var req appLockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return nil, appLockReq{}, false
	}
	if req.Password == "" {
		http.Error(w, "password required", http.StatusBadRequest)
		return nil, appLockReq{}, false
	}
	return user, req, true
}
