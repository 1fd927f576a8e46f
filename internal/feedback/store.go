// Package feedback carries counselor feedback to individuals and the
// comment threads on individual tasks.
package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"counsel-tasks-backend/internal/tasks"
)

type Feedback struct {
	ID            int       `json:"id"`
	CounselorID   int       `json:"counselor_id"`
	CounselorName string    `json:"counselor_name,omitempty"`
	IndividualID  int       `json:"individual_id"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, counselorID, individualID int, message string) (Feedback, error) {
	f := Feedback{CounselorID: counselorID, IndividualID: individualID, Message: message}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO feedback (counselor_id, individual_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, counselorID, individualID, message).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return f, nil
}

// Received lists feedback sent to the individual, newest first.
func (s *Store) Received(ctx context.Context, individualID int) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.counselor_id, u.name, f.individual_id, f.message, f.created_at
		FROM feedback f
		JOIN users u ON u.id = f.counselor_id
		WHERE f.individual_id = $1
		ORDER BY f.created_at DESC, f.id DESC
	`, individualID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := []Feedback{}
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.CounselorID, &f.CounselorName, &f.IndividualID, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Comments lists a task's comments, newest first.
func (s *Store) Comments(ctx context.Context, taskID int) ([]tasks.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.task_id, c.author_id, u.name, c.message, c.created_at
		FROM task_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.task_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []tasks.Comment{}
	for rows.Next() {
		var c tasks.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.AuthorName, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddComment(ctx context.Context, taskID, authorID int, message string) (tasks.Comment, error) {
	var c tasks.Comment
	err := s.db.QueryRowContext(ctx, `
		WITH c AS (
			INSERT INTO task_comments (task_id, author_id, message)
			VALUES ($1, $2, $3)
			RETURNING id, task_id, author_id, message, created_at
		)
		SELECT c.id, c.task_id, c.author_id, u.name, c.message, c.created_at
		FROM c JOIN users u ON u.id = c.author_id
	`, taskID, authorID, message).Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.AuthorName, &c.Message, &c.CreatedAt)
	if err != nil {
		return tasks.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}
