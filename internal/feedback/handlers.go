package feedback

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
	"counsel-tasks-backend/internal/notifications"
	"counsel-tasks-backend/internal/tasks"
)

const (
	feedbackExcerpt = 50
	commentExcerpt  = 40
)

type FeedbackStore interface {
	Create(ctx context.Context, counselorID, individualID int, message string) (Feedback, error)
	Received(ctx context.Context, individualID int) ([]Feedback, error)
}

type CommentStore interface {
	Comments(ctx context.Context, taskID int) ([]tasks.Comment, error)
	AddComment(ctx context.Context, taskID, authorID int, message string) (tasks.Comment, error)
}

type UserLookup interface {
	UserByID(ctx context.Context, id int) (auth.User, error)
}

type TaskLookup interface {
	Get(ctx context.Context, id int) (tasks.Task, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int, typ notifications.Type, message string) error
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// assignedTo reports whether individualID is on counselorID's roster.
func assignedTo(ctx context.Context, users UserLookup, individualID, counselorID int) (bool, error) {
	u, err := users.UserByID(ctx, individualID)
	if errors.Is(err, auth.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.CounselorID != nil && *u.CounselorID == counselorID, nil
}

// POST /feedback
func SendHandler(store FeedbackStore, users UserLookup, notify Notifier, sink analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !id.IsCounselor() {
			http.Error(w, "only counselors can send feedback", http.StatusForbidden)
			return
		}

		var body struct {
			IndividualID int    `json:"individual_id"`
			Message      string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.Message = strings.TrimSpace(body.Message)
		if body.IndividualID <= 0 || body.Message == "" {
			http.Error(w, "individual_id and message are required", http.StatusBadRequest)
			return
		}

		mine, err := assignedTo(r.Context(), users, body.IndividualID, id.UserID)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("feedback user lookup failed")
			http.Error(w, "failed to create feedback", http.StatusInternalServerError)
			return
		}
		if !mine {
			http.Error(w, "individual not found", http.StatusNotFound)
			return
		}

		fb, err := store.Create(r.Context(), id.UserID, body.IndividualID, body.Message)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("create feedback failed")
			http.Error(w, "failed to create feedback", http.StatusInternalServerError)
			return
		}

		msg := fmt.Sprintf("New feedback from your counselor: %q", notifications.Excerpt(body.Message, feedbackExcerpt))
		if err := notify.Notify(r.Context(), body.IndividualID, notifications.TypeFeedback, msg); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("feedback notification failed")
		}
		_ = analytics.Record(r, sink, analytics.EventFeedbackSent, map[string]any{
			"individual_id": body.IndividualID,
			"message_len":   len(body.Message),
		})

		writeJSON(w, fb)
	}
}

// GET /feedback lists what the caller has received.
func ListHandler(store FeedbackStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := store.Received(r.Context(), uid)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list feedback failed")
			http.Error(w, "failed to fetch feedback", http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	}
}

func Handler(store FeedbackStore, users UserLookup, notify Notifier, sink analytics.Sink) http.HandlerFunc {
	send := SendHandler(store, users, notify, sink)
	list := ListHandler(store)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			send(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// loadTask returns the task and whether the caller may see its comments:
// the owner or the owner's counselor.
func loadTask(ctx context.Context, taskStore TaskLookup, users UserLookup, taskID, callerID int) (tasks.Task, bool, error) {
	t, err := taskStore.Get(ctx, taskID)
	if err != nil {
		return tasks.Task{}, false, err
	}
	if t.UserID == callerID {
		return t, true, nil
	}
	mine, err := assignedTo(ctx, users, t.UserID, callerID)
	return t, mine, err
}

// GET /task-comments?task_id=
func CommentsHandler(store CommentStore, taskStore TaskLookup, users UserLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		taskID, err := strconv.Atoi(r.URL.Query().Get("task_id"))
		if err != nil || taskID <= 0 {
			http.Error(w, "task_id is required", http.StatusBadRequest)
			return
		}

		_, allowed, err := loadTask(r.Context(), taskStore, users, taskID, uid)
		if errors.Is(err, tasks.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("comment task lookup failed")
			http.Error(w, "failed to fetch comments", http.StatusInternalServerError)
			return
		}
		if !allowed {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		list, err := store.Comments(r.Context(), taskID)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list comments failed")
			http.Error(w, "failed to fetch comments", http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	}
}

// POST /task-comments: counselors comment on their individuals' tasks.
func AddCommentHandler(store CommentStore, taskStore TaskLookup, users UserLookup, notify Notifier, sink analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !id.IsCounselor() {
			http.Error(w, "only counselors can add comments", http.StatusForbidden)
			return
		}

		var body struct {
			TaskID  int    `json:"task_id"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.Message = strings.TrimSpace(body.Message)
		if body.TaskID <= 0 || body.Message == "" {
			http.Error(w, "task_id and message are required", http.StatusBadRequest)
			return
		}

		t, allowed, err := loadTask(r.Context(), taskStore, users, body.TaskID, id.UserID)
		if errors.Is(err, tasks.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("comment task lookup failed")
			http.Error(w, "failed to create comment", http.StatusInternalServerError)
			return
		}
		// a counselor's own tasks are not commentable
		if !allowed || t.UserID == id.UserID {
			http.Error(w, "you can only comment on your individuals' tasks", http.StatusForbidden)
			return
		}

		c, err := store.AddComment(r.Context(), t.ID, id.UserID, body.Message)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("create comment failed")
			http.Error(w, "failed to create comment", http.StatusInternalServerError)
			return
		}

		msg := fmt.Sprintf("New comment on %q: %q", t.Title, notifications.Excerpt(body.Message, commentExcerpt))
		if err := notify.Notify(r.Context(), t.UserID, notifications.TypeFeedback, msg); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("comment notification failed")
		}
		_ = analytics.Record(r, sink, analytics.EventCommentAdded, map[string]any{
			"task_id":     t.ID,
			"message_len": len(body.Message),
		})

		writeJSON(w, c)
	}
}

func CommentsRouter(store CommentStore, taskStore TaskLookup, users UserLookup, notify Notifier, sink analytics.Sink) http.HandlerFunc {
	list := CommentsHandler(store, taskStore, users)
	add := AddCommentHandler(store, taskStore, users, notify, sink)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			add(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
