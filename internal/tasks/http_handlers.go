package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"counsel-tasks-backend/internal/analytics"
	"counsel-tasks-backend/internal/auth"
)

// TaskStore is what the handlers need from persistence.
type TaskStore interface {
	List(ctx context.Context, userID int, from, to *time.Time) ([]Task, error)
	Get(ctx context.Context, id int) (Task, error)
	Create(ctx context.Context, nt NewTask) (Task, error)
	Save(ctx context.Context, t Task) error
	Delete(ctx context.Context, id, userID int) error
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// GET /tasks?date=YYYY-MM-DD
func GetTasksHandler(store TaskStore, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var from, to *time.Time
		if day := r.URL.Query().Get("date"); day != "" {
			start, err := time.ParseInLocation("2006-01-02", day, loc)
			if err != nil {
				http.Error(w, "invalid date", http.StatusBadRequest)
				return
			}
			end := start.AddDate(0, 0, 1)
			from, to = &start, &end
		}

		list, err := store.List(r.Context(), uid, from, to)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list tasks failed")
			http.Error(w, "failed to fetch tasks", http.StatusInternalServerError)
			return
		}

		writeJSON(w, list)
	}
}

// POST /tasks
func CreateTaskHandler(store TaskStore, loc *time.Location, sink analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Title            string  `json:"title"`
			Description      *string `json:"description"`
			Date             string  `json:"date"`
			EstimatedMinutes *int    `json:"estimated_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		title := strings.TrimSpace(body.Title)
		if title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}

		day := body.Date
		if day == "" {
			day = time.Now().In(loc).Format("2006-01-02")
		}
		date, err := NoonOn(day, loc)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}

		nt := NewTask{UserID: uid, Title: title, Description: body.Description, Date: date}
		if body.EstimatedMinutes != nil && *body.EstimatedMinutes > 0 {
			nt.EstimatedMinutes = body.EstimatedMinutes
		}

		t, err := store.Create(r.Context(), nt)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("create task failed")
			http.Error(w, "failed to create task", http.StatusInternalServerError)
			return
		}

		_ = analytics.Record(r, sink, analytics.EventTaskCreated, map[string]any{
			"task_id":         t.ID,
			"title_len":       len(t.Title),
			"has_estimate":    t.EstimatedMinutes != nil,
			"has_description": t.Description != nil,
			"days_from_now":   int(time.Until(t.Date).Hours() / 24),
		})

		writeJSON(w, t)
	}
}

// PUT /tasks
func UpdateTaskHandler(store TaskStore, rewards Rewarder, sink analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			ID               int             `json:"id"`
			Status           *string         `json:"status"`
			Completed        *bool           `json:"completed"`
			ActualMinutes    *int            `json:"actual_minutes"`
			StartedAt        json.RawMessage `json:"started_at"`
			Title            *string         `json:"title"`
			Description      *string         `json:"description"`
			EstimatedMinutes json.RawMessage `json:"estimated_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.ID == 0 {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}

		var u Update
		if body.Status != nil {
			st, err := ParseStatus(*body.Status)
			if err != nil {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			u.Status = &st
		}
		u.Completed = body.Completed
		u.ActualMinutes = body.ActualMinutes
		u.Description = body.Description
		if body.Title != nil {
			title := strings.TrimSpace(*body.Title)
			if title == "" {
				http.Error(w, "title required", http.StatusBadRequest)
				return
			}
			u.Title = &title
		}
		if isSet(body.StartedAt) {
			if isNull(body.StartedAt) {
				u.ClearStartedAt = true
			} else {
				var ts time.Time
				if err := json.Unmarshal(body.StartedAt, &ts); err != nil {
					http.Error(w, "invalid started_at", http.StatusBadRequest)
					return
				}
				u.StartedAt = &ts
			}
		}
		if isSet(body.EstimatedMinutes) {
			if isNull(body.EstimatedMinutes) {
				u.ClearEstimate = true
			} else {
				var n int
				if err := json.Unmarshal(body.EstimatedMinutes, &n); err != nil {
					http.Error(w, "invalid estimated_minutes", http.StatusBadRequest)
					return
				}
				u.EstimatedMinutes = &n
			}
		}

		prev, err := store.Get(r.Context(), body.ID)
		if errors.Is(err, ErrNotFound) || (err == nil && prev.UserID != uid) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Int("task_id", body.ID).Msg("load task failed")
			http.Error(w, "failed to update task", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		next, markedDone := ApplyUpdate(prev, u, now)
		if markedDone && rewards != nil {
			msg := rewards.Reward(r.Context(), next.Title)
			next.AIReward = &msg
		}

		if err := store.Save(r.Context(), next); err != nil {
			hlog.FromRequest(r).Error().Err(err).Int("task_id", body.ID).Msg("save task failed")
			http.Error(w, "failed to update task", http.StatusInternalServerError)
			return
		}

		switch {
		case !prev.IsDone() && next.IsDone():
			props := map[string]any{
				"task_id":                next.ID,
				"time_since_created_sec": int(now.Sub(prev.CreatedAt).Seconds()),
				"estimated_minutes":      next.EstimatedMinutes,
				"actual_minutes":         next.ActualMinutes,
			}
			_ = analytics.Record(r, sink, analytics.EventTaskCompleted, props)
		case prev.IsDone() && !next.IsDone():
			props := map[string]any{
				"task_id":                  next.ID,
				"time_since_completed_sec": sinceSeconds(prev.CompletedAt, now),
			}
			_ = analytics.Record(r, sink, analytics.EventTaskUncompleted, props)
		}

		writeJSON(w, next)
	}
}

// DELETE /tasks?id=
func DeleteTaskHandler(store TaskStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.Atoi(r.URL.Query().Get("id"))
		if err != nil || id <= 0 {
			http.Error(w, "task id required", http.StatusBadRequest)
			return
		}

		err = store.Delete(r.Context(), id, uid)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Int("task_id", id).Msg("delete task failed")
			http.Error(w, "failed to delete task", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{"success": true})
	}
}

// Handler serves all four methods on /tasks.
func Handler(store TaskStore, loc *time.Location, rewards Rewarder, sink analytics.Sink) http.HandlerFunc {
	list := GetTasksHandler(store, loc)
	create := CreateTaskHandler(store, loc, sink)
	update := UpdateTaskHandler(store, rewards, sink)
	del := DeleteTaskHandler(store)

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		case http.MethodPut:
			update(w, r)
		case http.MethodDelete:
			del(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func isSet(raw json.RawMessage) bool { return len(raw) > 0 }

func isNull(raw json.RawMessage) bool { return strings.TrimSpace(string(raw)) == "null" }

func sinceSeconds(t *time.Time, now time.Time) any {
	if t == nil {
		return nil
	}
	return int(now.Sub(*t).Seconds())
}
