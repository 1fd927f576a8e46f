package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	RoleIndividual = "INDIVIDUAL"
	RoleCounselor  = "COUNSELOR"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

type User struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	Role        string    `json:"role"`
	CounselorID *int      `json:"counselor_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewUser struct {
	Name        string
	Email       string
	Password    string // already hashed
	Role        string
	CounselorID *int
}

type UserStore interface {
	CreateUser(ctx context.Context, u NewUser) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id int) (User, error)
	Counselors(ctx context.Context) ([]User, error)
	DeleteAccount(ctx context.Context, id int) error
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, name, email, password, role, counselor_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var (
		u   User
		cid sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &cid, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	if cid.Valid {
		v := int(cid.Int64)
		u.CounselorID = &v
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password, role, counselor_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		nu.Name, strings.ToLower(nu.Email), nu.Password, nu.Role, nu.CounselorID,
	)
	u, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id int) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) Counselors(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name`, RoleCounselor)
	if err != nil {
		return nil, fmt.Errorf("query counselors: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteAccount removes the user and everything they own in one transaction.
func (s *Store) DeleteAccount(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		what  string
		query string
	}{
		{"chat_sessions", `DELETE FROM chat_sessions WHERE user_id = $1`},
		{"notifications", `DELETE FROM notifications WHERE user_id = $1`},
		{"feedback", `DELETE FROM feedback WHERE individual_id = $1 OR counselor_id = $1`},
		{"task_comments", `DELETE FROM task_comments WHERE author_id = $1 OR task_id IN (SELECT id FROM tasks WHERE user_id = $1)`},
		{"tasks", `DELETE FROM tasks WHERE user_id = $1`},
		{"roster", `UPDATE users SET counselor_id = NULL WHERE counselor_id = $1`},
		{"analytics_events", `DELETE FROM analytics_events WHERE user_id = $1`},
		{"users", `DELETE FROM users WHERE id = $1`},
	}
	for _, st := range steps {
		if _, err := tx.ExecContext(ctx, st.query, id); err != nil {
			return fmt.Errorf("delete %s: %w", st.what, err)
		}
	}

	return tx.Commit()
}
