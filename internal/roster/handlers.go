package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"

	"counsel-tasks-backend/internal/analytics"
	"counsel-tasks-backend/internal/auth"
	"counsel-tasks-backend/internal/feedback"
	"counsel-tasks-backend/internal/notifications"
	"counsel-tasks-backend/internal/tasks"
)

type RosterStore interface {
	Individuals(ctx context.Context, counselorID int) ([]Individual, error)
	Assign(ctx context.Context, individualID, counselorID int) error
	Unassign(ctx context.Context, individualID, counselorID int) error
}

type Users interface {
	UserByEmail(ctx context.Context, email string) (auth.User, error)
	UserByID(ctx context.Context, id int) (auth.User, error)
}

type TaskHistory interface {
	RecentTasks(ctx context.Context, userID, limit int) ([]tasks.Task, error)
}

type FeedbackHistory interface {
	Received(ctx context.Context, individualID int) ([]feedback.Feedback, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int, typ notifications.Type, message string) error
}

type Detail struct {
	ID       int                 `json:"id"`
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Tasks    []tasks.Task        `json:"tasks"`
	Feedback []feedback.Feedback `json:"feedback_received"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// GET /counselor/individuals
func ListHandler(store RosterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := store.Individuals(r.Context(), uid)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list individuals failed")
			http.Error(w, "failed to fetch individuals", http.StatusInternalServerError)
			return
		}

		var total, done int
		for _, in := range list {
			total += in.TotalTasks
			done += in.CompletedTasks
		}
		avg := 0
		if total > 0 {
			avg = (done*100 + total/2) / total
		}

		writeJSON(w, map[string]any{
			"individuals":        list,
			"total_completed":    done,
			"average_completion": avg,
		})
	}
}

// POST /counselor/individuals assigns an existing individual by email.
func AddHandler(store RosterStore, users Users, notify Notifier, sink analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(body.Email)
		if email == "" {
			http.Error(w, "email is required", http.StatusBadRequest)
			return
		}

		u, err := users.UserByEmail(r.Context(), email)
		if errors.Is(err, auth.ErrUserNotFound) || (err == nil && u.Role != auth.RoleIndividual) {
			http.Error(w, "individual not found with this email", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("individual lookup failed")
			http.Error(w, "failed to add individual", http.StatusInternalServerError)
			return
		}
		if u.CounselorID != nil {
			if *u.CounselorID == id.UserID {
				http.Error(w, "this individual is already assigned to you", http.StatusBadRequest)
			} else {
				http.Error(w, "this individual is already assigned to another counselor", http.StatusBadRequest)
			}
			return
		}

		err = store.Assign(r.Context(), u.ID, id.UserID)
		if errors.Is(err, ErrAlreadyAssigned) {
			// lost a race with another counselor
			http.Error(w, "this individual is already assigned to another counselor", http.StatusBadRequest)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("assign individual failed")
			http.Error(w, "failed to add individual", http.StatusInternalServerError)
			return
		}

		msg := fmt.Sprintf("%s has added you as their individual. They can now view your tasks and provide feedback.", id.Name)
		if err := notify.Notify(r.Context(), u.ID, notifications.TypeFeedback, msg); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("assignment notification failed")
		}
		_ = analytics.Record(r, sink, analytics.EventIndividualAdded, map[string]any{"individual_id": u.ID})

		writeJSON(w, map[string]any{"id": u.ID, "name": u.Name, "email": u.Email})
	}
}

// DELETE /counselor/individuals?id=
func RemoveHandler(store RosterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		individualID, err := strconv.Atoi(r.URL.Query().Get("id"))
		if err != nil || individualID <= 0 {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}

		err = store.Unassign(r.Context(), individualID, uid)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "individual not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("unassign individual failed")
			http.Error(w, "failed to remove individual", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{"success": true})
	}
}

func Handler(store RosterStore, users Users, notify Notifier, sink analytics.Sink) http.HandlerFunc {
	list := ListHandler(store)
	add := AddHandler(store, users, notify, sink)
	remove := RemoveHandler(store)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			add(w, r)
		case http.MethodDelete:
			remove(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// GET /counselor/individuals/{id}: every task (date desc) and the feedback
// the individual has received.
func DetailHandler(users Users, taskHistory TaskHistory, fb FeedbackHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		individualID, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		u, err := users.UserByID(r.Context(), individualID)
		if errors.Is(err, auth.ErrUserNotFound) || (err == nil && (u.CounselorID == nil || *u.CounselorID != uid)) {
			http.Error(w, "individual not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("individual lookup failed")
			http.Error(w, "failed to fetch individual", http.StatusInternalServerError)
			return
		}

		list, err := taskHistory.RecentTasks(r.Context(), u.ID, 0)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("individual tasks failed")
			http.Error(w, "failed to fetch individual", http.StatusInternalServerError)
			return
		}
		received, err := fb.Received(r.Context(), u.ID)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("individual feedback failed")
			http.Error(w, "failed to fetch individual", http.StatusInternalServerError)
			return
		}

		writeJSON(w, Detail{ID: u.ID, Name: u.Name, Email: u.Email, Tasks: list, Feedback: received})
	}
}
