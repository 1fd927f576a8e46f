package notifications

import (
	"context"
	"sync"
	"time"
)

type fakeStore struct {
	mu     sync.Mutex
	items  []Notification
	quotes []Quote
	seeded int

	pending        []Pending
	openFrom       time.Time
	openTo         time.Time
	countsSince    time.Time
	pendingCount   int
	completedCount int

	err error
}

func (f *fakeStore) add(userID int, msg string) Notification {
	n := Notification{ID: len(f.items) + 1, UserID: userID, Type: TypeFeedback, Message: msg, CreatedAt: time.Now()}
	f.items = append(f.items, n)
	return n
}

func (f *fakeStore) Notify(_ context.Context, userID int, typ Type, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.add(userID, msg)
	f.items[n.ID-1].Type = typ
	return f.err
}

func (f *fakeStore) Latest(_ context.Context, userID, limit int) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []Notification{}
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeStore) UnreadCount(_ context.Context, userID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.items {
		if it.UserID == userID && !it.Read {
			n++
		}
	}
	return n, f.err
}

func (f *fakeStore) MarkRead(_ context.Context, id, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			f.items[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) MarkAllRead(_ context.Context, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].UserID == userID {
			f.items[i].Read = true
		}
	}
	return nil
}

func (f *fakeStore) OpenTasks(_ context.Context, from, to time.Time) ([]Pending, error) {
	f.openFrom, f.openTo = from, to
	return f.pending, f.err
}

func (f *fakeStore) CreateMany(_ context.Context, typ Type, messages map[int]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, msg := range messages {
		n := f.add(id, msg)
		f.items[n.ID-1].Type = typ
	}
	return nil
}

func (f *fakeStore) TaskCounts(_ context.Context, _ int, since time.Time) (int, int, error) {
	f.countsSince = since
	return f.pendingCount, f.completedCount, f.err
}

func (f *fakeStore) Quotes(_ context.Context) ([]Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]Quote(nil), f.quotes...), nil
}

func (f *fakeStore) SeedQuotes(_ context.Context, quotes []Quote) error {
	f.seeded++
	f.quotes = append(f.quotes, quotes...)
	return nil
}

type fixedRand int

func (r fixedRand) IntN(n int) int { return int(r) % n }
