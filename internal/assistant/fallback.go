package assistant

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
)

// Rand picks template indexes. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Fallback answers from the summary alone when no model reply is
// available. It always returns text.
type Fallback struct {
	mu  sync.Mutex
	rnd Rand
}

func NewFallback(rnd Rand) *Fallback {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Fallback{rnd: rnd}
}

func (f *Fallback) pick(options []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return options[f.rnd.IntN(len(options))]
}

type rule struct {
	name  string
	match func(msg string) bool
	reply func(f *Fallback, s *Summary) string
}

var greetingRe = regexp.MustCompile(`^(hi|hello|hey|sup|yo|good morning|good evening)`)

func containsAny(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

// First match wins, so order is precedence.
var individualRules = []rule{
	{"greeting", greetingRe.MatchString, greetIndividual},
	{"motivation", containsAny("motivation", "motivate", "stuck", "help", "complete work", "need to work"), motivate},
	{"progress", containsAny("progress", "how am i", "status", "doing"), progress},
	{"today", containsAny("today", "task"), todayTasks},
	{"streak", containsAny("streak"), streakReply},
	{"pareto", containsAny("80/20", "pareto", "80 20"), pareto},
	{"time", containsAny("pomodoro", "time management", "focus"), timeManagement},
	{"study", containsAny("study", "learn", "exam"), study},
	{"question", containsAny("?", "what", "how", "why", "who"), offTopic},
}

var counselorRules = []rule{
	{"greeting", greetingRe.MatchString, greetCounselor},
	{"attention", containsAny("attention", "struggl", "behind", "support", "who needs", "at risk"), attention},
	{"encourage", containsAny("motivat", "encourage", "message for", "what should i say"), encourageMessage},
	{"overview", containsAny("progress", "overview", "how are", "status", "doing", "completion", "rate"), overview},
}

// classify returns the first rule matching the lower-cased message, or
// false when the default reply applies.
func classify(rules []rule, msg string) (rule, bool) {
	for _, r := range rules {
		if r.match(msg) {
			return r, true
		}
	}
	return rule{}, false
}

// Respond picks a category by keyword and fills it from s. s may be nil.
func (f *Fallback) Respond(role Role, message string, s *Summary) string {
	if s == nil {
		s = &Summary{Role: role}
	}
	msg := strings.ToLower(strings.TrimSpace(message))

	rules, def := individualRules, defaultIndividual
	if role == RoleCounselor {
		rules, def = counselorRules, defaultCounselor
	}

	out := ""
	if r, ok := classify(rules, msg); ok {
		out = r.reply(f, s)
	}
	if strings.TrimSpace(out) == "" {
		out = def(f, s)
	}
	return out
}

func greetIndividual(_ *Fallback, s *Summary) string {
	st := s.Stats
	return fmt.Sprintf("Hello! 👋 I'm your learning assistant.\n\n"+
		"🔥 Current streak: **%d days**\n"+
		"📊 7-day completion rate: **%d%%**\n"+
		"📋 Tasks today: **%d** (%d completed)\n\n"+
		"Ask me about your progress, today's tasks or how to stay productive.",
		st.Streak, st.Last7.Rate, st.Today.Total, st.Today.Completed)
}

func motivate(f *Fallback, s *Summary) string {
	st := s.Stats

	var streakLine, todayLine, overdueLine, closing1, closing3 string
	if st.Streak > 0 {
		streakLine = fmt.Sprintf("You already have a %d-day streak. That is real commitment.\n\n", st.Streak)
	}
	if st.Today.Total > 0 {
		todayLine = fmt.Sprintf("You have %d tasks lined up today. Let's get through them.\n\n", st.Today.Total)
	}
	if len(st.Overdue) > 0 {
		overdueLine = "A few tasks slipped past their day. That's fine, today is a clean start.\n\n"
	}
	if st.Last7.Rate < 50 {
		closing1 = "Momentum builds one finished task at a time. 🚀"
		closing3 = "Small steps add up quickly. Start now. 🌱"
	} else {
		closing1 = "You're already doing well, keep that energy. 🌟"
		closing3 = "You've been finishing tasks steadily, you know you can do this. 💪"
	}

	return f.pick([]string{
		"💪 **You can do this!**\n\n" + streakLine +
			"To get going:\n\n" +
			"1. **Shrink it** - give one task just 5 minutes\n" +
			"2. **Cut distractions** - close extra tabs, silence your phone\n" +
			"3. **Reward yourself** - take a short break after each task\n" +
			"4. **Remember why** - what is this goal for?\n\n" + closing1,

		"🌟 **Time to get started!**\n\n" + todayLine +
			"**Quick boost:**\n\n" +
			"💡 Begin with the easiest task to build momentum\n" +
			"🎯 Aim for progress, not perfection\n" +
			"⚡ Action comes first, motivation follows\n\n" +
			"Pick ONE task now and give it 10 minutes. 🚀",

		"🔥 **Let's move!**\n\n" + overdueLine +
			"**Plan:**\n\n" +
			"1. **Set a 25 minute timer**\n" +
			"2. **Work on one task only**\n" +
			"3. **Take a 5 minute break** when it rings\n" +
			"4. **Repeat**\n\n" + closing3,
	})
}

func progress(_ *Fallback, s *Summary) string {
	st := s.Stats
	var b strings.Builder
	b.WriteString("📊 **Your progress**\n\n")
	fmt.Fprintf(&b, "🔥 Current streak: **%d days**\n", st.Streak)
	fmt.Fprintf(&b, "📈 7-day completion rate: **%d%%**\n", st.Last7.Rate)
	fmt.Fprintf(&b, "📋 Today: **%d/%d** tasks completed\n\n", st.Today.Completed, st.Today.Total)

	switch r := st.Last7.Rate; {
	case r >= 80:
		b.WriteString("🎉 **Outstanding!** Your consistency is excellent.")
	case r >= 60:
		b.WriteString("💪 **Great work!** Solid progress, keep it up.")
	case r >= 40:
		b.WriteString("📈 **Good start!** You're building momentum.")
	case r > 0:
		b.WriteString("🌱 **Every bit counts.** Focus on one task at a time and it will climb.")
	default:
		b.WriteString("🚀 **Ready?** Today is a good day to start a streak.")
	}

	if len(st.Overdue) > 0 {
		b.WriteString("\n\n⚠️ Some tasks are overdue. Want tips on catching up?")
	}
	return b.String()
}

func todayTasks(_ *Fallback, s *Summary) string {
	return "📋 **Today's tasks**\n\n" + strings.TrimSpace(s.Stats.Today.list()) +
		"\n\n💡 **Tip**: start with the hardest or most important one. Eat that frog! 🐸"
}

func streakReply(_ *Fallback, s *Summary) string {
	n := s.Stats.Streak
	if n <= 0 {
		return "📅 **Start a streak today!**\n\n" +
			"Finish at least one task to begin. Small daily actions turn into big results. 🚀"
	}

	var note string
	switch {
	case n >= 30:
		note = "🏆 **Legendary!** A whole month of consistency."
	case n >= 14:
		note = "🌟 **Two weeks strong!** These are real habits now."
	case n >= 7:
		note = "🎯 **One week!** Great dedication."
	case n >= 3:
		note = "💪 **Momentum!** Keep it going."
	default:
		note = "🌱 **Nice start!** Every day counts."
	}
	return fmt.Sprintf("🔥 **You're on a %d-day streak!**\n\n%s\n\n"+
		"Finish at least one task today to keep it alive. ✨", n, note)
}

func pareto(_ *Fallback, s *Summary) string {
	tail := "\nTry it on your next task list. 🚀"
	if n := s.Stats.Today.Total; n > 0 {
		tail = fmt.Sprintf("\nOf your %d tasks today, which ones move the needle most? Start there. 🎯", n)
	}
	return "📊 **The 80/20 rule (Pareto principle)**\n\n" +
		"💡 Roughly 80% of results come from 20% of the effort.\n\n" +
		"**How to use it:**\n\n" +
		"1. **Find your 20%** - which tasks have the biggest impact?\n" +
		"2. **Do those first** - high impact before busywork\n" +
		"3. **Drop or postpone** the low-value rest\n\n" +
		"With 10 tasks, 2 or 3 usually matter most.\n" + tail
}

func timeManagement(_ *Fallback, s *Summary) string {
	tail := "Ready to try one? 💪"
	if s.Stats.Today.Total > 0 {
		tail = "Try a Pomodoro on your next task! 🚀"
	}
	return "⏰ **Time management techniques**\n\n" +
		"🍅 **Pomodoro:**\n" +
		"• 25 focused minutes\n• 5 minute break\n• Repeat 4 times, then a 15-30 minute break\n\n" +
		"⚡ **Time blocking:**\n" +
		"• Give each task its own slot in the day\n• Batch similar tasks together\n\n" +
		"🎯 **Eat the frog:**\n" +
		"• Do the hardest task first, the rest feels easier\n\n" + tail
}

func study(_ *Fallback, s *Summary) string {
	tail := "Consistency beats intensity. Study a little every day! 📈"
	if n := s.Stats.Streak; n > 0 {
		tail = fmt.Sprintf("Your %d-day streak shows you can be consistent. Bring that to studying! 🌟", n)
	}
	return "📚 **Study strategies**\n\n" +
		"**Before:**\n• 🎯 Set a clear goal (\"understand chapter 5\")\n• 📱 Remove distractions\n\n" +
		"**During:**\n• 🧠 Test yourself often (active recall)\n• 📝 Write notes in your own words\n" +
		"• 🔄 Break every 25-50 minutes\n\n" +
		"**After:**\n• 💭 Explain it to someone else\n• 📊 Review regularly\n• 😴 Sleep well, memory consolidates overnight\n\n" + tail
}

func offTopic(_ *Fallback, s *Summary) string {
	tail := "\nWhat would you like help with? 💪"
	if n := s.Stats.Today.Total; n > 0 {
		tail = fmt.Sprintf("\nYou have %d tasks today, want to go through them? 🎯", n)
	}
	return "I'm here to help with tasks, learning and productivity. 📚\n\n" +
		"I can't answer general knowledge questions, but I can help with:\n\n" +
		"✅ **Tasks** - \"What's on for today?\"\n" +
		"✅ **Progress** - \"How am I doing?\"\n" +
		"✅ **Motivation** - \"I need motivation\"\n" +
		"✅ **Study** - \"How do I study for an exam?\"\n" +
		"✅ **Time** - \"Explain the Pomodoro technique\"\n" + tail
}

func defaultIndividual(_ *Fallback, s *Summary) string {
	st := s.Stats
	return fmt.Sprintf("Hi! I'm your learning assistant. 👋\n\n"+
		"📊 **Quick stats:**\n"+
		"🔥 Streak: **%d days**\n"+
		"📈 7-day completion: **%d%%**\n"+
		"📋 Today: **%d/%d** tasks done\n\n"+
		"I can help with progress tracking, today's tasks, motivation, study tips and time management. "+
		"What would you like to know? 🚀",
		st.Streak, st.Last7.Rate, st.Today.Completed, st.Today.Total)
}

func roster(s *Summary) RosterStats {
	if s.Roster == nil {
		return RosterStats{}
	}
	return *s.Roster
}

func greetCounselor(_ *Fallback, s *Summary) string {
	rs := roster(s)
	if len(rs.Members) == 0 {
		return "Hello! 👋 No individuals are assigned to you yet. Add them from your dashboard and I can help you follow their progress."
	}
	return fmt.Sprintf("Hello! 👋 Here is your overview.\n\n"+
		"👥 Individuals: **%d**\n"+
		"📈 Overall completion rate: **%d%%**\n"+
		"⚠️ Needing attention: **%d**\n\n"+
		"Ask me who needs support, how everyone is doing, or for a motivating message to send.",
		len(rs.Members), rs.OverallRate, len(rs.NeedsAttention))
}

func attention(_ *Fallback, s *Summary) string {
	rs := roster(s)
	if len(rs.Members) == 0 {
		return ""
	}
	if len(rs.NeedsAttention) == 0 {
		return "✅ Everyone with tasks this week is completing at least half of them. No one needs extra attention right now."
	}
	var b strings.Builder
	b.WriteString("⚠️ **Individuals needing attention**\n\n")
	for _, m := range rs.NeedsAttention {
		fmt.Fprintf(&b, "• **%s**: %d%% of %d tasks done in the last 7 days", m.Name, m.Last7.Rate, m.Last7.Total)
		if len(m.Overdue) > 0 {
			fmt.Fprintf(&b, ", %d overdue", len(m.Overdue))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n💡 A short check-in and breaking their next task into smaller steps usually helps.")
	return b.String()
}

func encourageMessage(f *Fallback, s *Summary) string {
	if len(roster(s).Members) == 0 {
		return ""
	}
	return "✉️ **A message you could send:**\n\n" + f.pick([]string{
		"\"I noticed the effort you've been putting in. Pick one task today and give it 15 focused minutes, I'm cheering for you!\"",
		"\"Progress isn't about being perfect. Every task you finish counts, and I'm proud of how you keep showing up.\"",
		"\"Let's make today simple: one important task first, then a break. You've got this!\"",
	})
}

func overview(_ *Fallback, s *Summary) string {
	rs := roster(s)
	if len(rs.Members) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("📊 **Roster overview**\n\n")
	fmt.Fprintf(&b, "Total tasks: **%d**, completed: **%d** (%d%%)\n\n", rs.TotalTasks, rs.TotalCompleted, rs.OverallRate)
	for _, m := range rs.Members {
		fmt.Fprintf(&b, "• **%s**: %d/%d done, %d%% this week, %d-day streak\n",
			m.Name, m.Completed, m.Total, m.Last7.Rate, m.Streak)
	}
	return b.String()
}

func defaultCounselor(_ *Fallback, _ *Summary) string {
	return "I can help you analyze your individuals' progress. Ask about completion rates, who needs attention, " +
		"or how to motivate someone. What would you like to know?"
}
