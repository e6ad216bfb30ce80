package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"keybox/internal/auth"
	"keybox/internal/vault"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy to HTTP statuses. NotFound keeps one
// message for "doesn't exist" and "not yours" so existence never leaks.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		http.Error(w, "not authenticated", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrInvalidAppLock):
		http.Error(w, "invalid app lock password", http.StatusBadRequest)
	case errors.Is(err, auth.ErrIdentityExchange):
		http.Error(w, "invalid session id", http.StatusBadRequest)
	case errors.Is(err, vault.ErrNotFound):
		http.Error(w, "entry not found", http.StatusNotFound)
	case errors.Is(err, vault.ErrInvalidEntry):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Printf("internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func tooMany(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	http.Error(w, "too many requests", http.StatusTooManyRequests)
}

// requireUser resolves the caller from the presented token; every vault and
// app-lock handler passes through here first.
func (s *Server) requireUser(r *http.Request) (*auth.User, error) {
	return s.auth.ResolveToken(r.Context(), auth.TokenFromRequest(r))
}

func userPayload(u *auth.User) map[string]any {
	return map[string]any{
		"user":           u,
		"needs_app_lock": u.AppLockHash != "",
	}
}

func entryPayload(kind vault.Kind, e vault.Entry) map[string]any {
	out := map[string]any{
		"id":         e.ID,
		"user_id":    e.UserID,
		"created_at": e.CreatedAt,
		"updated_at": e.UpdatedAt,
	}
	for _, f := range kind.Fields {
		if v := e.Fields[f]; v != "" {
			out[f] = v
		}
	}
	return out
}
