package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counsel-tasks-backend/internal/tasks"
)

// Wednesday afternoon.
var base = time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)

func TestEmptyWindowsRateZero(t *testing.T) {
	s := BuildIndividual(nil, base)

	assert.Equal(t, Window{}, s.Stats.Week)
	assert.Equal(t, Window{}, s.Stats.Last7)
	assert.Equal(t, Window{}, s.Stats.Last30)
	assert.Equal(t, 0, s.Stats.Streak)
	assert.Empty(t, s.Stats.Overdue)
	assert.Contains(t, s.Render(), "Completion rate: 0%")
}

func TestStreakCountsBackFromToday(t *testing.T) {
	list := []tasks.Task{
		at(base, 0, "today", true),
		at(base, -1, "yesterday", true),
		at(base, -2, "two days ago", true),
		at(base, -4, "after gap", true),
	}
	assert.Equal(t, 3, BuildIndividual(list, base).Stats.Streak)
}

func TestStreakNeedsCompletionToday(t *testing.T) {
	list := []tasks.Task{
		at(base, -1, "yesterday", true),
		at(base, -2, "two days ago", true),
	}
	assert.Equal(t, 0, BuildIndividual(list, base).Stats.Streak)
}

func TestStreakUsesCompletionDate(t *testing.T) {
	// dated last week, finished today
	late := at(base, -6, "late", true)
	late.CompletedAt = ptr(base.Add(-time.Hour))
	// finished flag without a timestamp does not count
	noStamp := at(base, -1, "no stamp", true)
	noStamp.CompletedAt = nil

	assert.Equal(t, 1, BuildIndividual([]tasks.Task{late, noStamp}, base).Stats.Streak)
}

func TestStreakInLocalDays(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, loc)
	// 02:00 UTC on the 11th is still the 10th in loc
	task := tasks.Task{Title: "late night", Status: tasks.StatusDone, Completed: true,
		Date: now, CompletedAt: ptr(time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC))}

	assert.Equal(t, 0, BuildIndividual([]tasks.Task{task}, now).Stats.Streak)
}

func TestTodayCounts(t *testing.T) {
	inProgress := at(base, 0, "draft", false)
	inProgress.Status = tasks.StatusInProgress
	inProgress.EstimatedMinutes = ptr(45)

	list := []tasks.Task{
		at(base, 0, "read", true),
		inProgress,
		at(base, 0, "email", false),
		at(base, -1, "old", false),
	}
	s := BuildIndividual(list, base).Stats

	assert.Equal(t, Today{
		Total: 3, Completed: 1, InProgress: 1, Pending: 2,
		Tasks: []TodayTask{
			{Title: "read", Status: tasks.StatusDone},
			{Title: "draft", Status: tasks.StatusInProgress, EstimatedMinutes: ptr(45)},
			{Title: "email", Status: tasks.StatusTodo},
		},
	}, s.Today)
}

func TestWindowsAndRates(t *testing.T) {
	list := []tasks.Task{
		at(base, 0, "a", true),    // Wed
		at(base, -3, "b", false),  // Sun, same week
		at(base, -4, "c", true),   // Sat, last week
		at(base, -10, "d", true),  // in 30 days
		at(base, -29, "e", false), // in 30 days
		at(base, -40, "f", true),  // outside
	}
	s := BuildIndividual(list, base).Stats

	assert.Equal(t, Window{Total: 2, Completed: 1, Rate: 50}, s.Week)
	assert.Equal(t, Window{Total: 3, Completed: 2, Rate: 67}, s.Last7)
	assert.Equal(t, Window{Total: 5, Completed: 3, Rate: 60}, s.Last30)
}

func TestDoneByFlagOrStatus(t *testing.T) {
	byStatus := at(base, 0, "status only", false)
	byStatus.Status = tasks.StatusDone
	byFlag := at(base, 0, "flag only", false)
	byFlag.Completed = true

	s := BuildIndividual([]tasks.Task{byStatus, byFlag}, base).Stats
	assert.Equal(t, 2, s.Today.Completed)
}

func TestOverdueCappedAndExcludesToday(t *testing.T) {
	list := []tasks.Task{at(base, 0, "today", false)}
	for i := 1; i <= 7; i++ {
		list = append(list, at(base, -i, "overdue", false))
	}
	list = append(list, at(base, -8, "done", true))

	s := BuildIndividual(list, base).Stats
	require.Len(t, s.Overdue, 5)
	assert.Equal(t, dayStart(base).AddDate(0, 0, -1).Add(12*time.Hour), s.Overdue[0].Due)
	for _, o := range s.Overdue {
		assert.Equal(t, "overdue", o.Title)
	}
}

func TestCounselorSummary(t *testing.T) {
	roster := []tasks.Member{
		{ID: 1, Name: "Ana", Email: "ana@x", Tasks: []tasks.Task{
			at(base, 0, "a1", true), at(base, -1, "a2", true), at(base, -2, "a3", false),
		}},
		{ID: 2, Name: "Ben", Email: "ben@x", Tasks: []tasks.Task{
			at(base, 0, "b1", false), at(base, -1, "b2", false), at(base, -2, "b3", true),
		}},
		{ID: 3, Name: "Cy", Email: "cy@x", Tasks: []tasks.Task{}},
	}
	s := BuildCounselor(roster, base)

	require.NotNil(t, s.Roster)
	rs := s.Roster
	assert.Equal(t, RoleCounselor, s.Role)
	assert.Len(t, rs.Members, 3)
	assert.Equal(t, 6, rs.TotalTasks)
	assert.Equal(t, 3, rs.TotalCompleted)
	assert.Equal(t, 50, rs.OverallRate)

	// Cy has no tasks in the window and is not flagged
	require.Len(t, rs.NeedsAttention, 1)
	assert.Equal(t, "Ben", rs.NeedsAttention[0].Name)
	assert.Equal(t, 33, rs.NeedsAttention[0].Last7.Rate)

	ana := rs.Members[0]
	assert.Equal(t, 2, ana.Completed)
	assert.Equal(t, 1, ana.Pending)
	assert.Equal(t, 2, ana.Streak)
	assert.Equal(t, []string{"a1", "a2"}, ana.RecentDone)

	out := s.Render()
	assert.Contains(t, out, "Overall completion rate: 50%")
	assert.Contains(t, out, "Ben (33% completion in the last 7 days)")
	assert.Contains(t, out, "Ana (ana@x)")
}

func TestCounselorWithoutRoster(t *testing.T) {
	s := BuildCounselor(nil, base)
	assert.Equal(t, 0, s.Roster.OverallRate)
	assert.Contains(t, s.Render(), "No individuals are assigned")
}

func TestRenderIndividual(t *testing.T) {
	list := []tasks.Task{at(base, 0, "read", true), at(base, -2, "essay", false)}
	out := BuildIndividual(list, base).Render()

	assert.Contains(t, out, "TODAY (Wednesday, March 11, 2026)")
	assert.Contains(t, out, `- "read" [DONE]`)
	assert.Contains(t, out, "Current streak: 1 days")
	assert.Contains(t, out, `- "essay" (due Mar 9)`)
}
