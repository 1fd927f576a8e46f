package assistant

import (
	"fmt"
	"math"
	"strings"
	"time"

	"counsel-tasks-backend/internal/tasks"
)

type Role string

const (
	RoleIndividual Role = "individual"
	RoleCounselor  Role = "counselor"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleIndividual, RoleCounselor:
		return r, true
	}
	return "", false
}

const (
	overdueLimit       = 5
	memberOverdueLimit = 3
	recentDoneLimit    = 3
	attentionRate      = 50
)

// Window counts tasks dated inside a period.
type Window struct {
	Total     int
	Completed int
	Rate      int
}

type TodayTask struct {
	Title            string
	Status           tasks.Status
	EstimatedMinutes *int
}

type Today struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
	Tasks      []TodayTask
}

type OverdueTask struct {
	Title string
	Due   time.Time
}

// Stats is what we know about one person's recent tasks.
type Stats struct {
	Today   Today
	Week    Window
	Last7   Window
	Last30  Window
	Streak  int
	Overdue []OverdueTask
}

type MemberStats struct {
	ID         int
	Name       string
	Email      string
	Total      int
	Completed  int
	Pending    int
	RecentDone []string
	Stats
}

type RosterStats struct {
	Members        []MemberStats
	TotalTasks     int
	TotalCompleted int
	OverallRate    int
	NeedsAttention []MemberStats
}

// Summary is the read-only context for one assistant request. Roster is
// set only for counselors.
type Summary struct {
	Role   Role
	Now    time.Time
	Stats  Stats
	Roster *RosterStats
}

func completionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// computeStats expects list ordered by date desc. Days are taken in now's
// location.
func computeStats(list []tasks.Task, now time.Time, maxOverdue int) Stats {
	loc := now.Location()
	today := dayStart(now)
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 7)
	from7 := now.AddDate(0, 0, -7)
	from30 := now.AddDate(0, 0, -30)

	var s Stats
	s.Today.Tasks = []TodayTask{}
	doneDays := map[string]bool{}

	for _, t := range list {
		date := t.Date.In(loc)
		done := t.IsDone()

		if !date.Before(today) && date.Before(tomorrow) {
			s.Today.Total++
			switch {
			case done:
				s.Today.Completed++
			case t.Status == tasks.StatusInProgress:
				s.Today.InProgress++
			}
			if !done {
				s.Today.Pending++
			}
			s.Today.Tasks = append(s.Today.Tasks, TodayTask{
				Title:            t.Title,
				Status:           t.Status,
				EstimatedMinutes: t.EstimatedMinutes,
			})
		}

		if !date.Before(weekStart) && date.Before(weekEnd) {
			s.Week.Total++
			if done {
				s.Week.Completed++
			}
		}
		if !date.Before(from7) {
			s.Last7.Total++
			if done {
				s.Last7.Completed++
			}
		}
		if !date.Before(from30) {
			s.Last30.Total++
			if done {
				s.Last30.Completed++
			}
		}

		if done && t.CompletedAt != nil {
			doneDays[dayKey(t.CompletedAt.In(loc))] = true
		}
		if !done && date.Before(today) && len(s.Overdue) < maxOverdue {
			s.Overdue = append(s.Overdue, OverdueTask{Title: t.Title, Due: date})
		}
	}

	s.Week.Rate = completionRate(s.Week.Completed, s.Week.Total)
	s.Last7.Rate = completionRate(s.Last7.Completed, s.Last7.Total)
	s.Last30.Rate = completionRate(s.Last30.Completed, s.Last30.Total)
	s.Streak = streak(doneDays, today)
	return s
}

// streak walks back from today over days that have a completion.
func streak(doneDays map[string]bool, today time.Time) int {
	n := 0
	for d := today; doneDays[dayKey(d)]; d = d.AddDate(0, 0, -1) {
		n++
	}
	return n
}

// BuildIndividual summarizes one user's tasks (date desc) at now.
func BuildIndividual(list []tasks.Task, now time.Time) Summary {
	return Summary{
		Role:  RoleIndividual,
		Now:   now,
		Stats: computeStats(list, now, overdueLimit),
	}
}

// BuildCounselor summarizes every member of a roster at now.
func BuildCounselor(roster []tasks.Member, now time.Time) Summary {
	rs := &RosterStats{Members: []MemberStats{}}
	from7 := now.AddDate(0, 0, -7)
	loc := now.Location()

	for _, m := range roster {
		ms := MemberStats{
			ID:    m.ID,
			Name:  m.Name,
			Email: m.Email,
			Total: len(m.Tasks),
			Stats: computeStats(m.Tasks, now, memberOverdueLimit),
		}
		for _, t := range m.Tasks {
			if t.IsDone() {
				ms.Completed++
				if !t.Date.In(loc).Before(from7) && len(ms.RecentDone) < recentDoneLimit {
					ms.RecentDone = append(ms.RecentDone, t.Title)
				}
			} else {
				ms.Pending++
			}
		}

		rs.Members = append(rs.Members, ms)
		rs.TotalTasks += ms.Total
		rs.TotalCompleted += ms.Completed
		if ms.Last7.Total > 0 && ms.Last7.Rate < attentionRate {
			rs.NeedsAttention = append(rs.NeedsAttention, ms)
		}
	}
	rs.OverallRate = completionRate(rs.TotalCompleted, rs.TotalTasks)

	return Summary{Role: RoleCounselor, Now: now, Roster: rs}
}

// Render writes the summary as the data block the model is allowed to use.
func (s Summary) Render() string {
	var b strings.Builder
	if s.Role == RoleCounselor {
		s.renderRoster(&b)
	} else {
		s.renderIndividual(&b)
	}
	return b.String()
}

func (s Summary) renderIndividual(b *strings.Builder) {
	st := s.Stats
	fmt.Fprintf(b, "USER DATA (use only this data):\n\n")
	fmt.Fprintf(b, "TODAY (%s):\n", s.Now.Format("Monday, January 2, 2006"))
	fmt.Fprintf(b, "- Tasks today: %d\n", st.Today.Total)
	fmt.Fprintf(b, "- Completed: %d\n", st.Today.Completed)
	fmt.Fprintf(b, "- In progress: %d\n", st.Today.InProgress)
	fmt.Fprintf(b, "- Pending: %d\n", st.Today.Pending)
	b.WriteString("- Today's tasks:\n")
	b.WriteString(st.Today.list())

	writeWindow(b, "THIS WEEK", st.Week)
	writeWindow(b, "LAST 7 DAYS", st.Last7)
	writeWindow(b, "LAST 30 DAYS", st.Last30)

	fmt.Fprintf(b, "\nSTREAK:\n- Current streak: %d days\n", st.Streak)

	b.WriteString("\nOVERDUE TASKS:\n")
	if len(st.Overdue) == 0 {
		b.WriteString("No overdue tasks.\n")
	}
	for _, o := range st.Overdue {
		fmt.Fprintf(b, "- %q (due %s)\n", o.Title, o.Due.Format("Jan 2"))
	}
}

func (s Summary) renderRoster(b *strings.Builder) {
	rs := s.Roster
	if rs == nil || len(rs.Members) == 0 {
		b.WriteString("COUNSELOR DATA:\nNo individuals are assigned to you yet. Add individuals from the dashboard to start tracking them.\n")
		return
	}

	b.WriteString("COUNSELOR DATA (use only this data):\n\nOVERVIEW:\n")
	fmt.Fprintf(b, "- Individuals: %d\n", len(rs.Members))
	fmt.Fprintf(b, "- Total tasks: %d\n", rs.TotalTasks)
	fmt.Fprintf(b, "- Completed: %d\n", rs.TotalCompleted)
	fmt.Fprintf(b, "- Overall completion rate: %d%%\n\n", rs.OverallRate)

	if len(rs.NeedsAttention) == 0 {
		b.WriteString("All individuals are on track.\n")
	} else {
		b.WriteString("NEEDS ATTENTION:\n")
		for _, m := range rs.NeedsAttention {
			fmt.Fprintf(b, "- %s (%d%% completion in the last 7 days)\n", m.Name, m.Last7.Rate)
		}
	}

	b.WriteString("\nINDIVIDUALS:\n")
	for _, m := range rs.Members {
		fmt.Fprintf(b, "\n%s (%s):\n", m.Name, m.Email)
		fmt.Fprintf(b, "  - Total tasks: %d\n", m.Total)
		fmt.Fprintf(b, "  - Completed: %d | Pending: %d\n", m.Completed, m.Pending)
		fmt.Fprintf(b, "  - Today: %d (%d done)\n", m.Today.Total, m.Today.Completed)
		fmt.Fprintf(b, "  - Last 7 days completion: %d%%\n", m.Last7.Rate)
		fmt.Fprintf(b, "  - Current streak: %d days\n", m.Streak)
		if len(m.Overdue) == 0 {
			b.WriteString("  - No overdue tasks\n")
		} else {
			b.WriteString("  - Overdue:\n")
			for _, o := range m.Overdue {
				fmt.Fprintf(b, "    - %q (due %s)\n", o.Title, o.Due.Format("Jan 2"))
			}
		}
		if len(m.RecentDone) > 0 {
			b.WriteString("  - Recently completed:\n")
			for _, title := range m.RecentDone {
				fmt.Fprintf(b, "    - %q\n", title)
			}
		}
	}
}

func writeWindow(b *strings.Builder, name string, w Window) {
	fmt.Fprintf(b, "\n%s:\n- Total tasks: %d\n- Completed: %d\n- Completion rate: %d%%\n",
		name, w.Total, w.Completed, w.Rate)
}

func (t Today) list() string {
	if len(t.Tasks) == 0 {
		return "No tasks scheduled for today\n"
	}
	var b strings.Builder
	for _, task := range t.Tasks {
		fmt.Fprintf(&b, "- %q [%s]", task.Title, task.Status)
		if task.EstimatedMinutes != nil && *task.EstimatedMinutes > 0 {
			fmt.Fprintf(&b, " (est. %d min)", *task.EstimatedMinutes)
		}
		b.WriteString("\n")
	}
	return b.String()
}
