package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const taskColumns = `id, user_id, title, description, date, status, completed,
	completed_at, started_at, estimated_minutes, actual_minutes, ai_reward, created_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var (
		t                  Task
		desc, reward       sql.NullString
		completedAt, start sql.NullTime
		est, actual        sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &desc, &t.Date, &t.Status, &t.Completed,
		&completedAt, &start, &est, &actual, &reward, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if reward.Valid {
		t.AIReward = &reward.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if start.Valid {
		t.StartedAt = &start.Time
	}
	if est.Valid {
		v := int(est.Int64)
		t.EstimatedMinutes = &v
	}
	if actual.Valid {
		v := int(actual.Int64)
		t.ActualMinutes = &v
	}
	return t, nil
}

func collect(rows *sql.Rows) ([]Task, error) {
	defer rows.Close()
	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// List returns the user's tasks in creation order, optionally limited to
// dates in [from, to), with their comments attached.
func (s *Store) List(ctx context.Context, userID int, from, to *time.Time) ([]Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if from != nil && to != nil {
		q += ` AND date >= $2 AND date < $3`
		args = append(args, *from, *to)
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	list, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachComments(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) attachComments(ctx context.Context, list []Task) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(list))
	idx := make(map[int]int, len(list))
	for i, t := range list {
		ids = append(ids, int64(t.ID))
		idx[t.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.task_id, c.author_id, u.name, c.message, c.created_at
		FROM task_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.task_id = ANY($1)
		ORDER BY c.created_at DESC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.AuthorName, &c.Message, &c.CreatedAt); err != nil {
			return err
		}
		i := idx[c.TaskID]
		list[i].Comments = append(list[i].Comments, c)
	}
	return rows.Err()
}

func (s *Store) Get(ctx context.Context, id int) (Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (s *Store) Create(ctx context.Context, nt NewTask) (Task, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (user_id, title, description, date, status, estimated_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+taskColumns,
		nt.UserID, nt.Title, nt.Description, nt.Date, StatusTodo, nt.EstimatedMinutes,
	)
	t, err := scanTask(row)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// Save writes every mutable column of t.
func (s *Store) Save(ctx context.Context, t Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, completed = $4,
		    completed_at = $5, started_at = $6, estimated_minutes = $7,
		    actual_minutes = $8, ai_reward = $9
		WHERE id = $10
	`, t.Title, t.Description, t.Status, t.Completed,
		t.CompletedAt, t.StartedAt, t.EstimatedMinutes,
		t.ActualMinutes, t.AIReward, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the task only when userID owns it.
func (s *Store) Delete(ctx context.Context, id, userID int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentTasks returns up to limit of the user's tasks, newest date first.
// limit <= 0 means all tasks.
func (s *Store) RecentTasks(ctx context.Context, userID, limit int) ([]Task, error) {
	var n sql.NullInt64
	if limit > 0 {
		n = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	// LIMIT NULL is no limit
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2
	`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("query recent tasks: %w", err)
	}
	return collect(rows)
}

// RosterTasks returns every individual assigned to the counselor, each with
// up to limit of their tasks (date desc). limit <= 0 means all tasks.
func (s *Store) RosterTasks(ctx context.Context, counselorID, limit int) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email
		FROM users
		WHERE counselor_id = $1 AND role = 'INDIVIDUAL'
		ORDER BY name, id
	`, counselorID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}

	members := []Member{}
	for rows.Next() {
		m := Member{Tasks: []Task{}}
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			rows.Close()
			return nil, err
		}
		members = append(members, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return members, nil
	}

	ids := make([]int64, len(members))
	idx := make(map[int]int, len(members))
	for i, m := range members {
		ids[i] = int64(m.ID)
		idx[m.ID] = i
	}

	trows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM (
			SELECT t.*, ROW_NUMBER() OVER (PARTITION BY t.user_id ORDER BY t.date DESC, t.id DESC) AS rn
			FROM tasks t
			WHERE t.user_id = ANY($1)
		) ranked
		WHERE $2 <= 0 OR rn <= $2
		ORDER BY user_id, date DESC, id DESC
	`, pq.Array(ids), limit)
	if err != nil {
		return nil, fmt.Errorf("query roster tasks: %w", err)
	}
	list, err := collect(trows)
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		i := idx[t.UserID]
		members[i].Tasks = append(members[i].Tasks, t)
	}
	return members, nil
}
