package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[int]User
	nextID  int
	deleted []int
	err     error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int]User{}, nextID: 1}
}

func (f *fakeUsers) CreateUser(_ context.Context, nu NewUser) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return User{}, f.err
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, nu.Email) {
			return User{}, ErrEmailTaken
		}
	}
	u := User{
		ID:          f.nextID,
		Name:        nu.Name,
		Email:       strings.ToLower(nu.Email),
		Password:    nu.Password,
		Role:        nu.Role,
		CounselorID: nu.CounselorID,
		CreatedAt:   time.Now(),
	}
	f.byID[u.ID] = u
	f.nextID++
	return u, nil
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (f *fakeUsers) UserByID(_ context.Context, id int) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) Counselors(_ context.Context) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []User
	for _, u := range f.byID {
		if u.Role == RoleCounselor {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) DeleteAccount(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}
