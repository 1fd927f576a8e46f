package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"counsel-tasks-backend/internal/auth"
)

const latestLimit = 20

type Inbox interface {
	Latest(ctx context.Context, userID, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
	MarkRead(ctx context.Context, id, userID int) error
	MarkAllRead(ctx context.Context, userID int) error
}

type Reminders interface {
	OpenTasks(ctx context.Context, from, to time.Time) ([]Pending, error)
	CreateMany(ctx context.Context, typ Type, messages map[int]string) error
}

type TaskCounter interface {
	TaskCounts(ctx context.Context, userID int, since time.Time) (pending, completed int, err error)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// GET /notifications
func ListHandler(inbox Inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := inbox.Latest(r.Context(), uid, latestLimit)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list notifications failed")
			http.Error(w, "failed to fetch notifications", http.StatusInternalServerError)
			return
		}
		unread, err := inbox.UnreadCount(r.Context(), uid)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("count notifications failed")
			http.Error(w, "failed to fetch notifications", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{
			"notifications": list,
			"unread_count":  unread,
		})
	}
}

// PUT /notifications with {"id": n} or {"mark_all_read": true}
func MarkReadHandler(inbox Inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			ID          int  `json:"id"`
			MarkAllRead bool `json:"mark_all_read"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var err error
		switch {
		case body.MarkAllRead:
			err = inbox.MarkAllRead(r.Context(), uid)
		case body.ID > 0:
			err = inbox.MarkRead(r.Context(), body.ID, uid)
		default:
			http.Error(w, "id or mark_all_read is required", http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("mark notifications failed")
			http.Error(w, "failed to update notifications", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{"success": true})
	}
}

func Handler(inbox Inbox) http.HandlerFunc {
	list := ListHandler(inbox)
	mark := MarkReadHandler(inbox)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPut:
			mark(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// POST /notifications/remind sends one reminder to every individual with
// unfinished tasks dated today.
func RemindHandler(store Reminders, quotes *Quotes, loc *time.Location, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		from := startOfDay(now().In(loc))
		pending, err := store.OpenTasks(r.Context(), from, from.AddDate(0, 0, 1))
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("reminder lookup failed")
			http.Error(w, "failed to create notifications", http.StatusInternalServerError)
			return
		}

		messages := make(map[int]string, len(pending))
		if len(pending) > 0 {
			q := quotes.Pick(r.Context())
			for _, p := range pending {
				messages[p.UserID] = ReminderMessage(p.Open, q)
			}
		}
		if err := store.CreateMany(r.Context(), TypeReminder, messages); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("reminder insert failed")
			http.Error(w, "failed to create notifications", http.StatusInternalServerError)
			return
		}

		hlog.FromRequest(r).Info().Int("sent", len(messages)).Msg("reminders sent")
		writeJSON(w, map[string]any{
			"success":            true,
			"notifications_sent": len(messages),
		})
	}
}

// GET /motivational
func MotivationalHandler(counts TaskCounter, quotes *Quotes, loc *time.Location, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := quotes.Pick(r.Context())

		pending, done, err := counts.TaskCounts(r.Context(), uid, startOfDay(now().In(loc)))
		if err != nil {
			// the quote alone is still worth showing
			hlog.FromRequest(r).Warn().Err(err).Msg("motivational counts failed")
			writeJSON(w, q)
			return
		}

		writeJSON(w, map[string]any{
			"quote":            q.Quote,
			"author":           q.Author,
			"personal_message": PersonalMessage(done, pending),
			"pending_tasks":    pending,
			"completed_today":  done,
		})
	}
}
