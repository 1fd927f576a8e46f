package assistant

import (
	"context"
	"sync"
	"time"

	"counsel-tasks-backend/internal/tasks"
)

// fakeClock only moves when told to or when something sleeps on it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fixedRand always returns the same index, clamped to n.
type fixedRand int

func (r fixedRand) IntN(n int) int {
	if int(r) >= n {
		return n - 1
	}
	return int(r)
}

type fakeTasks struct {
	recent []tasks.Task
	roster []tasks.Member
	err    error

	recentCalls int
	rosterCalls int
	lastLimit   int
}

func (f *fakeTasks) RecentTasks(_ context.Context, _ int, limit int) ([]tasks.Task, error) {
	f.recentCalls++
	f.lastLimit = limit
	return f.recent, f.err
}

func (f *fakeTasks) RosterTasks(_ context.Context, _ int, limit int) ([]tasks.Member, error) {
	f.rosterCalls++
	f.lastLimit = limit
	return f.roster, f.err
}

type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	seen    [][]Content
}

func (g *scriptedGenerator) Generate(_ context.Context, contents []Content) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	g.seen = append(g.seen, contents)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	if len(g.replies) > 0 {
		return g.replies[len(g.replies)-1], nil
	}
	return "", ErrNoReply
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func ptr[T any](v T) *T { return &v }

// at builds a task dated on the given day offset from base, at noon.
func at(base time.Time, dayOffset int, title string, done bool) tasks.Task {
	d := dayStart(base).AddDate(0, 0, dayOffset).Add(12 * time.Hour)
	t := tasks.Task{Title: title, Date: d, Status: tasks.StatusTodo}
	if done {
		t.Status = tasks.StatusDone
		t.Completed = true
		t.CompletedAt = ptr(d.Add(time.Hour))
	}
	return t
}
