// Package notifications stores in-app notifications and the motivational
// quotes shown on the dashboard.
package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Type string

const (
	TypeFeedback Type = "FEEDBACK"
	TypeReminder Type = "REMINDER"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// Pending is an individual with unfinished tasks in some window.
type Pending struct {
	UserID int
	Open   int
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const notificationColumns = `id, user_id, type, message, read, created_at`

// Notify satisfies the Notifier used by other packages.
func (s *Store) Notify(ctx context.Context, userID int, typ Type, message string) error {
	_, err := s.Create(ctx, userID, typ, message)
	return err
}

func (s *Store) Create(ctx context.Context, userID int, typ Type, message string) (Notification, error) {
	var n Notification
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, message)
		VALUES ($1, $2, $3)
		RETURNING `+notificationColumns,
		userID, typ, message,
	).Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// CreateMany inserts one notification per user in a single statement.
func (s *Store) CreateMany(ctx context.Context, typ Type, messages map[int]string) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(messages))
	texts := make([]string, 0, len(messages))
	for id, msg := range messages {
		ids = append(ids, int64(id))
		texts = append(texts, msg)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, message)
		SELECT u, $1, m FROM unnest($2::int[], $3::text[]) AS x(u, m)
	`, typ, pq.Array(ids), pq.Array(texts))
	if err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context, userID, limit int) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UnreadCount(ctx context.Context, userID int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one notification as read if userID owns it.
func (s *Store) MarkRead(ctx context.Context, id, userID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

// OpenTasks lists individuals with unfinished tasks dated in [from, to).
func (s *Store) OpenTasks(ctx context.Context, from, to time.Time) ([]Pending, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.user_id, COUNT(*)
		FROM tasks t
		JOIN users u ON u.id = t.user_id
		WHERE u.role = 'INDIVIDUAL'
		  AND t.date >= $1 AND t.date < $2
		  AND NOT t.completed AND t.status <> 'DONE'
		GROUP BY t.user_id
		ORDER BY t.user_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query open tasks: %w", err)
	}
	defer rows.Close()

	var out []Pending
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.UserID, &p.Open); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TaskCounts returns the user's unfinished tasks and those completed since.
func (s *Store) TaskCounts(ctx context.Context, userID int, since time.Time) (pending, completed int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE NOT completed AND status <> 'DONE'),
			COUNT(*) FILTER (WHERE completed_at >= $2)
		FROM tasks
		WHERE user_id = $1
	`, userID, since).Scan(&pending, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	return pending, completed, nil
}

func (s *Store) Quotes(ctx context.Context) ([]Quote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT quote, author FROM motivational_quotes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.Quote, &q.Author); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) SeedQuotes(ctx context.Context, quotes []Quote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range quotes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO motivational_quotes (quote, author) VALUES ($1, $2)`, q.Quote, q.Author); err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
	}
	return tx.Commit()
}
