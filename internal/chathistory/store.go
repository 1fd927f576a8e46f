// Package chathistory keeps the assistant conversations a user chose to save.
package chathistory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	defaultTitle = "New Chat"
	titleLimit   = 50

	Greeting = "Hi there! I'm your personal AI assistant. I can help you stay motivated, plan your tasks, " +
		"suggest time management strategies, and answer questions. What would you like help with today?"
)

var ErrNotFound = errors.New("chat session not found")

type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// titleFor returns the new session title when a message should rename the
// session: only the first user message does.
func titleFor(role, content string, userMessages int) (string, bool) {
	if role != RoleUser || userMessages != 1 {
		return "", false
	}
	r := []rune(content)
	if len(r) <= titleLimit {
		return content, true
	}
	return string(r[:titleLimit]) + "...", true
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const sessionColumns = `id, user_id, title, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	s.Messages = []Message{}
	return s, nil
}

// Sessions lists the user's sessions, most recently active first.
func (s *Store) Sessions(ctx context.Context, userID int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	out := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, sess)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachMessages(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) attachMessages(ctx context.Context, sessions []Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	idx := make(map[uuid.UUID]int, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID.String()
		idx[sess.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages
		WHERE session_id = ANY($1::uuid[])
		ORDER BY created_at ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return err
		}
		i := idx[m.SessionID]
		sessions[i].Messages = append(sessions[i].Messages, m)
	}
	return rows.Err()
}

// Create opens a session that starts with the assistant greeting.
func (s *Store) Create(ctx context.Context, userID int, title string) (Session, error) {
	if title == "" {
		title = defaultTitle
	}
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sess, err := scanSession(tx.QueryRowContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+sessionColumns,
		uuid.New(), userID, title, now,
	))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	greet := Message{ID: uuid.New(), SessionID: sess.ID, Role: RoleAssistant, Content: Greeting, CreatedAt: now}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, greet.ID, greet.SessionID, greet.Role, greet.Content, greet.CreatedAt); err != nil {
		return Session{}, fmt.Errorf("insert greeting: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	sess.Messages = []Message{greet}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID, userID int) (Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return Session{}, err
	}
	list := []Session{sess}
	if err := s.attachMessages(ctx, list); err != nil {
		return Session{}, err
	}
	return list[0], nil
}

// AddMessage appends to a session the user owns and bumps updated_at.
func (s *Store) AddMessage(ctx context.Context, id uuid.UUID, userID int, role, content string) (Message, error) {
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var owner int
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM chat_sessions WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("lock session: %w", err)
	}

	m := Message{ID: uuid.New(), SessionID: id, Role: role, Content: content, CreatedAt: now}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	var userMessages int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = $1 AND role = $2`, id, RoleUser).Scan(&userMessages); err != nil {
		return Message{}, fmt.Errorf("count messages: %w", err)
	}

	if title, ok := titleFor(role, content, userMessages); ok {
		_, err = tx.ExecContext(ctx,
			`UPDATE chat_sessions SET title = $2, updated_at = $3 WHERE id = $1`, id, title, now)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`, id, now)
	}
	if err != nil {
		return Message{}, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID, userID int) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
