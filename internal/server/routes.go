package server

import (
	"net/http"

	"keybox/internal/vault"
)

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/api/auth/session", s.handleExchange)
	s.mux.HandleFunc("/api/auth/me", s.handleMe)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("/api/auth/set-app-lock", s.handleSetAppLock)
	s.mux.HandleFunc("/api/auth/verify-app-lock", s.handleVerifyAppLock)
	s.mux.HandleFunc("/api/auth/remove-app-lock", s.handleRemoveAppLock)

	for _, kind := range vault.Kinds() {
		s.mux.HandleFunc("/api/"+kind.Route, s.handleEntries(kind))
		s.mux.HandleFunc("/api/"+kind.Route+"/", s.handleEntryByID(kind))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
