package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"keybox/internal/vault"
)

// handleEntries serves list and create for one record kind; the three kinds
// share every code path and differ only in their descriptor.
func (s *Server) handleEntries(kind vault.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.requireUser(r)
		if err != nil {
			s.writeErr(w, err)
			return
		}

		switch r.Method {
		case http.MethodGet:
			entries, err := s.entries.List(r.Context(), kind, user.ID, r.URL.Query().Get("search"))
			if err != nil {
				s.writeErr(w, err)
				return
			}
			out := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				out = append(out, entryPayload(kind, e))
			}
			writeJSON(w, out)

		case http.MethodPost:
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			e, err := s.entries.Create(r.Context(), kind, user.ID, fields)
			if err != nil {
				s.writeErr(w, err)
				return
			}
			writeJSONStatus(w, http.StatusCreated, entryPayload(kind, e))

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleEntryByID(kind vault.Kind) http.HandlerFunc {
	prefix := "/api/" + kind.Route + "/"
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.requireUser(r)
		if err != nil {
			s.writeErr(w, err)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, prefix)
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}

		switch r.Method {
		case http.MethodPut:
			fields, ok := decodeFields(w, r)
			if !ok {
				return
			}
			e, err := s.entries.Update(r.Context(), kind, user.ID, id, fields)
			if err != nil {
				s.writeErr(w, err)
				return
			}
			writeJSON(w, entryPayload(kind, e))

		case http.MethodDelete:
			if err := s.entries.Delete(r.Context(), kind, user.ID, id); err != nil {
				s.writeErr(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return nil, false
	}
	return fields, true
}
