package tasks

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusTodo, StatusInProgress, StatusDone:
		return st, nil
	}
	return "", errors.New("invalid status")
}

var ErrNotFound = errors.New("task not found")

type Task struct {
	ID               int        `json:"id"`
	UserID           int        `json:"user_id"`
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	Date             time.Time  `json:"date"`
	Status           Status     `json:"status"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at"`
	StartedAt        *time.Time `json:"started_at"`
	EstimatedMinutes *int       `json:"estimated_minutes"`
	ActualMinutes    *int       `json:"actual_minutes"`
	AIReward         *string    `json:"ai_reward"`
	CreatedAt        time.Time  `json:"created_at"`

	Comments []Comment `json:"comments,omitempty"`
}

// IsDone treats either flag as completion; older rows may only carry one.
func (t Task) IsDone() bool {
	return t.Completed || t.Status == StatusDone
}

type Comment struct {
	ID         int       `json:"id"`
	TaskID     int       `json:"task_id"`
	AuthorID   int       `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Member is one individual of a counselor's roster with their tasks.
type Member struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Tasks []Task `json:"tasks"`
}

type NewTask struct {
	UserID           int
	Title            string
	Description      *string
	Date             time.Time
	EstimatedMinutes *int
}

// Update is a partial edit. Nil fields are left alone; the Clear flags
// null the column out.
type Update struct {
	Status           *Status
	Completed        *bool
	ActualMinutes    *int
	StartedAt        *time.Time
	ClearStartedAt   bool
	Title            *string
	Description      *string
	EstimatedMinutes *int
	ClearEstimate    bool
}

// ApplyUpdate returns t with u applied and keeps status, completed and
// completed_at in sync. markedDone reports whether this edit moved the task to DONE,
// which is when a reward message is written.
func ApplyUpdate(t Task, u Update, now time.Time) (next Task, markedDone bool) {
	next = t

	// re-saving a done task keeps its original completion time
	completedAt := func() *time.Time {
		if t.IsDone() && t.CompletedAt != nil {
			ts := *t.CompletedAt
			return &ts
		}
		ts := now
		return &ts
	}

	if u.Status != nil {
		next.Status = *u.Status
		if *u.Status == StatusInProgress && u.StartedAt == nil {
			ts := now
			next.StartedAt = &ts
		}
		if *u.Status == StatusDone {
			next.Completed = true
			next.CompletedAt = completedAt()
			markedDone = !t.IsDone()
		} else {
			next.Completed = false
			next.CompletedAt = nil
		}
	}

	// the flag wins over status when a client sends both
	if u.Completed != nil {
		next.Completed = *u.Completed
		if *u.Completed {
			next.CompletedAt = completedAt()
			next.Status = StatusDone
			markedDone = !t.IsDone()
		} else {
			next.CompletedAt = nil
			next.Status = StatusTodo
			markedDone = false
		}
	}

	if u.ActualMinutes != nil {
		v := *u.ActualMinutes
		next.ActualMinutes = &v
	}
	if u.StartedAt != nil {
		ts := *u.StartedAt
		next.StartedAt = &ts
	} else if u.ClearStartedAt {
		next.StartedAt = nil
	}

	if u.Title != nil {
		next.Title = *u.Title
	}
	if u.Description != nil {
		d := *u.Description
		next.Description = &d
	}
	if u.EstimatedMinutes != nil && *u.EstimatedMinutes > 0 {
		v := *u.EstimatedMinutes
		next.EstimatedMinutes = &v
	} else if u.ClearEstimate || u.EstimatedMinutes != nil {
		next.EstimatedMinutes = nil
	}

	return next, markedDone
}

// NoonOn pins a calendar day to 12:00 in loc so the day survives
// timezone shifts between client and server.
func NoonOn(day string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(day), loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc), nil
}
