package chathistory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"counsel-tasks-backend/internal/auth"
)

type SessionStore interface {
	Sessions(ctx context.Context, userID int) ([]Session, error)
	Create(ctx context.Context, userID int, title string) (Session, error)
	Get(ctx context.Context, id uuid.UUID, userID int) (Session, error)
	AddMessage(ctx context.Context, id uuid.UUID, userID int, role, content string) (Message, error)
	Delete(ctx context.Context, id uuid.UUID, userID int) error
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Handler serves /chat-history: GET lists sessions, POST opens one.
func Handler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		switch r.Method {
		case http.MethodGet:
			list, err := store.Sessions(r.Context(), uid)
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("list chat sessions failed")
				http.Error(w, "failed to fetch chat sessions", http.StatusInternalServerError)
				return
			}
			writeJSON(w, list)

		case http.MethodPost:
			var body struct {
				Title string `json:"title"`
			}
			// an empty body is a session with the default title
			if r.ContentLength != 0 {
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					http.Error(w, "invalid json", http.StatusBadRequest)
					return
				}
			}
			sess, err := store.Create(r.Context(), uid, strings.TrimSpace(body.Title))
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("create chat session failed")
				http.Error(w, "failed to create chat session", http.StatusInternalServerError)
				return
			}
			writeJSON(w, sess)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// SessionHandler serves /chat-history/{id}.
func SessionHandler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "chat session not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			sess, err := store.Get(r.Context(), id, uid)
			if !respondErr(w, r, err, "fetch") {
				writeJSON(w, sess)
			}

		case http.MethodPost:
			var body struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			if body.Role != RoleUser && body.Role != RoleAssistant {
				http.Error(w, "role must be user or assistant", http.StatusBadRequest)
				return
			}
			if strings.TrimSpace(body.Content) == "" {
				http.Error(w, "content is required", http.StatusBadRequest)
				return
			}
			m, err := store.AddMessage(r.Context(), id, uid, body.Role, body.Content)
			if !respondErr(w, r, err, "add message") {
				writeJSON(w, m)
			}

		case http.MethodDelete:
			err := store.Delete(r.Context(), id, uid)
			if !respondErr(w, r, err, "delete") {
				writeJSON(w, map[string]any{"success": true})
			}

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// respondErr writes the error response for err, if any, and reports
// whether it did.
func respondErr(w http.ResponseWriter, r *http.Request, err error, op string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotFound):
		http.Error(w, "chat session not found", http.StatusNotFound)
	default:
		hlog.FromRequest(r).Error().Err(err).Str("op", op).Msg("chat session request failed")
		http.Error(w, "failed to "+op+" chat session", http.StatusInternalServerError)
	}
	return true
}
