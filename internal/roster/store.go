// Package roster manages which individuals a counselor follows.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("individual not found")
	ErrAlreadyAssigned = errors.New("individual already has a counselor")
)

// Individual is one roster row with task totals.
type Individual struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Individuals(ctx context.Context, counselorID int) ([]Individual, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email,
		       COUNT(t.id),
		       COUNT(t.id) FILTER (WHERE t.completed OR t.status = 'DONE')
		FROM users u
		LEFT JOIN tasks t ON t.user_id = u.id
		WHERE u.counselor_id = $1 AND u.role = 'INDIVIDUAL'
		GROUP BY u.id, u.name, u.email
		ORDER BY u.name, u.id
	`, counselorID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	out := []Individual{}
	for rows.Next() {
		var in Individual
		if err := rows.Scan(&in.ID, &in.Name, &in.Email, &in.TotalTasks, &in.CompletedTasks); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Assign sets the counselor of an unassigned individual.
func (s *Store) Assign(ctx context.Context, individualID, counselorID int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET counselor_id = $2
		WHERE id = $1 AND role = 'INDIVIDUAL' AND counselor_id IS NULL
	`, individualID, counselorID)
	if err != nil {
		return fmt.Errorf("assign individual: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyAssigned
	}
	return nil
}

// Unassign only succeeds for the individual's current counselor.
func (s *Store) Unassign(ctx context.Context, individualID, counselorID int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET counselor_id = NULL
		WHERE id = $1 AND counselor_id = $2
	`, individualID, counselorID)
	if err != nil {
		return fmt.Errorf("unassign individual: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
