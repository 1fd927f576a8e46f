// Package leaderboard ranks individuals who share a counselor.
package leaderboard

import (
	"cmp"
	"math"
	"slices"

	"counsel-tasks-backend/internal/tasks"
)

const (
	completionWeight = 0.40
	efficiencyWeight = 0.35
	pendingWeight    = 0.25

	pointsPerCompleted = 10
	maxEfficiency      = 200
)

type Entry struct {
	Rank             int     `json:"rank"`
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email,omitempty"`
	CompletedTasks   int     `json:"completed_tasks"`
	PendingTasks     int     `json:"pending_tasks"`
	TotalTasks       int     `json:"total_tasks"`
	ActualMinutes    int     `json:"actual_minutes"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	Efficiency       int     `json:"efficiency"`
	Score            float64 `json:"composite_score"`
}

// Efficiency is estimated over actual time as a percentage, capped at 200.
// Completed work with no tracked time counts as 100.
func Efficiency(estimated, actual, completed int) float64 {
	switch {
	case estimated > 0 && actual > 0:
		return math.Min(float64(estimated)/float64(actual)*100, maxEfficiency)
	case completed > 0 && actual == 0:
		return 100
	default:
		return 0
	}
}

// Score combines completed count, efficiency and how few tasks are pending
// relative to the group's worst. maxPending is at least 1.
func Score(completed, pending, maxPending int, efficiency float64) float64 {
	if maxPending < 1 {
		maxPending = 1
	}
	completion := float64(completed * pointsPerCompleted)
	pendingScore := float64(maxPending-pending) / float64(maxPending) * 100

	s := completion*completionWeight + efficiency*efficiencyWeight + pendingScore*pendingWeight
	return math.Round(s*100) / 100
}

// Rank scores every member and returns them best first, ranks from 1.
// Ties keep roster order.
func Rank(members []tasks.Member) []Entry {
	entries := make([]Entry, 0, len(members))
	maxPending := 1
	effs := make([]float64, 0, len(members))

	for _, m := range members {
		e := Entry{ID: m.ID, Name: m.Name, Email: m.Email, TotalTasks: len(m.Tasks)}
		for _, t := range m.Tasks {
			if t.IsDone() {
				e.CompletedTasks++
			} else {
				e.PendingTasks++
			}
			if t.ActualMinutes != nil {
				e.ActualMinutes += *t.ActualMinutes
			}
			if t.EstimatedMinutes != nil {
				e.EstimatedMinutes += *t.EstimatedMinutes
			}
		}
		maxPending = max(maxPending, e.PendingTasks)

		eff := Efficiency(e.EstimatedMinutes, e.ActualMinutes, e.CompletedTasks)
		e.Efficiency = int(math.Round(eff))
		effs = append(effs, eff)
		entries = append(entries, e)
	}

	for i := range entries {
		entries[i].Score = Score(entries[i].CompletedTasks, entries[i].PendingTasks, maxPending, effs[i])
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
