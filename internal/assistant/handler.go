package assistant

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"counsel-tasks-backend/internal/analytics"
	"counsel-tasks-backend/internal/auth"
)

// ChatHandler serves POST /ai/chat.
func ChatHandler(svc *Service, sink analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Message string `json:"message"`
			Context string `json:"context"`
			History []Turn `json:"history"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Message) == "" {
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}

		role, ok := ParseRole(body.Context)
		if !ok {
			role = roleFor(id)
		}
		if role != roleFor(id) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		reply, err := svc.Reply(r.Context(), Request{
			UserID:  id.UserID,
			Role:    role,
			Message: body.Message,
			History: body.History,
		})
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("assistant reply failed")
			http.Error(w, "failed to process request", http.StatusInternalServerError)
			return
		}

		_ = analytics.Record(r, sink, analytics.EventAssistantReply, map[string]any{
			"role":        string(role),
			"source":      string(reply.Source),
			"message_len": len(body.Message),
			"history_len": len(body.History),
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}
}

func roleFor(id auth.Identity) Role {
	if id.IsCounselor() {
		return RoleCounselor
	}
	return RoleIndividual
}
