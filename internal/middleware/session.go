package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scoopstand/api/internal/service"
	"github.com/scoopstand/api/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// Session is the kiosk session attached to a request by LoadSession.
type Session struct {
	ID    uuid.UUID
	Order service.Order
}

// LoadSession resolves the {sid} URL parameter against the store and puts the
// session's order into the request context.
func LoadSession(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := uuid.Parse(chi.URLParam(r, "sid"))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
				return
			}

			order, err := store.Get(r.Context(), sid)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
					return
				}
				log.Printf("ERROR: load session %s: %v", sid, err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, &Session{ID: sid, Order: order})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session loaded by LoadSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
