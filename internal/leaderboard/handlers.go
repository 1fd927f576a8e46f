package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"counsel-tasks-backend/internal/auth"
	"counsel-tasks-backend/internal/tasks"
)

type RosterSource interface {
	RosterTasks(ctx context.Context, counselorID, limit int) ([]tasks.Member, error)
}

type UserLookup interface {
	UserByID(ctx context.Context, id int) (auth.User, error)
}

type response struct {
	Leaderboard   []Entry   `json:"leaderboard"`
	CurrentUserID int       `json:"current_user_id,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
	Message       string    `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// GET /counselor/leaderboard
func CounselorHandler(roster RosterSource, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// limit 0: every task counts
		members, err := roster.RosterTasks(r.Context(), uid, 0)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("leaderboard roster failed")
			http.Error(w, "failed to fetch leaderboard", http.StatusInternalServerError)
			return
		}

		writeJSON(w, response{Leaderboard: Rank(members), LastUpdated: now().UTC()})
	}
}

// GET /individual/leaderboard ranks the caller among their counselor's
// other individuals. Emails are not shown to peers.
func IndividualHandler(users UserLookup, roster RosterSource, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		me, err := users.UserByID(r.Context(), uid)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("leaderboard user lookup failed")
			http.Error(w, "failed to fetch leaderboard", http.StatusInternalServerError)
			return
		}
		if me.CounselorID == nil {
			writeJSON(w, response{
				Leaderboard:   []Entry{},
				CurrentUserID: uid,
				LastUpdated:   now().UTC(),
				Message:       "No counselor assigned",
			})
			return
		}

		members, err := roster.RosterTasks(r.Context(), *me.CounselorID, 0)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("leaderboard roster failed")
			http.Error(w, "failed to fetch leaderboard", http.StatusInternalServerError)
			return
		}

		entries := Rank(members)
		for i := range entries {
			entries[i].Email = ""
		}
		writeJSON(w, response{Leaderboard: entries, CurrentUserID: uid, LastUpdated: now().UTC()})
	}
}
