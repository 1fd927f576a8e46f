package assistant

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counsel-tasks-backend/internal/tasks"
)

func sampleSummary() Summary {
	list := []tasks.Task{
		at(base, 0, "read", true),
		at(base, 0, "write", false),
		at(base, -1, "math", true),
		at(base, -3, "late essay", false),
	}
	return BuildIndividual(list, base)
}

func sampleRoster() Summary {
	return BuildCounselor([]tasks.Member{
		{ID: 1, Name: "Ana", Tasks: []tasks.Task{at(base, 0, "a", true)}},
		{ID: 2, Name: "Ben", Tasks: []tasks.Task{at(base, 0, "b", false), at(base, -2, "c", false)}},
	}, base)
}

func categoryOf(rules []rule, msg string) string {
	r, ok := classify(rules, strings.ToLower(msg))
	if !ok {
		return "default"
	}
	return r.name
}

func TestFallbackTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(parameters)

	f := NewFallback(nil)
	individual := sampleSummary()
	counselor := sampleRoster()
	emptyCounselor := BuildCounselor(nil, base)

	keywords := []string{"", "hello", "streak", "task", "help", "80/20", "focus",
		"study", "why?", "who needs attention", "overview", "motivate", "héllo ✨", "进度"}

	properties.Property("every message gets a non-empty reply", prop.ForAll(
		func(msg string, k int) bool {
			kw := keywords[k]
			for _, m := range []string{msg, kw, kw + " " + msg, msg + kw} {
				replies := []string{
					f.Respond(RoleIndividual, m, nil),
					f.Respond(RoleIndividual, m, &individual),
					f.Respond(RoleCounselor, m, nil),
					f.Respond(RoleCounselor, m, &counselor),
					f.Respond(RoleCounselor, m, &emptyCounselor),
				}
				for _, r := range replies {
					if strings.TrimSpace(r) == "" {
						return false
					}
				}
			}
			return true
		},
		gen.AnyString(),
		gen.IntRange(0, len(keywords)-1),
	))

	properties.TestingRun(t)
}

func TestFallbackEmptyMessage(t *testing.T) {
	f := NewFallback(fixedRand(0))
	s := sampleSummary()
	assert.NotEmpty(t, f.Respond(RoleIndividual, "", &s))
	assert.NotEmpty(t, f.Respond("", "", nil))
}

func TestGreetingShadowsLaterCategories(t *testing.T) {
	assert.Equal(t, "greeting", categoryOf(individualRules, "hello, what about my streak"))
	assert.Equal(t, "greeting", categoryOf(individualRules, "Hey, show my tasks"))
	assert.Equal(t, "greeting", categoryOf(counselorRules, "hello, who needs attention?"))

	f := NewFallback(fixedRand(0))
	s := sampleSummary()
	assert.True(t, strings.HasPrefix(f.Respond(RoleIndividual, "hello, what about my streak", &s), "Hello!"))
}

func TestCategoryOrder(t *testing.T) {
	cases := map[string]string{
		"I'm stuck":                       "motivation",
		"can you help with my progress":   "motivation",
		"how am i doing":                  "progress",
		"what is on today":                "today",
		"list my tasks":                   "today",
		"my streak":                       "streak",
		"explain pareto":                  "pareto",
		"tips on time management":         "time",
		"how to focus and study":          "time",
		"exam next week":                  "study",
		"what is the capital of france":   "question",
		"ok":                              "default",
		"say hello":                       "default",
	}
	for msg, want := range cases {
		assert.Equal(t, want, categoryOf(individualRules, msg), msg)
	}

	counselor := map[string]string{
		"who is struggling":            "attention",
		"how are my individuals doing": "overview",
		"write a message to motivate":  "encourage",
		"thanks":                       "default",
	}
	for msg, want := range counselor {
		assert.Equal(t, want, categoryOf(counselorRules, msg), msg)
	}
}

func TestFallbackUsesSummaryFacts(t *testing.T) {
	f := NewFallback(fixedRand(0))
	s := sampleSummary()

	greet := f.Respond(RoleIndividual, "hi", &s)
	assert.Contains(t, greet, "Current streak: **2 days**")
	assert.Contains(t, greet, "Tasks today: **2** (1 completed)")

	streakMsg := f.Respond(RoleIndividual, "what's my streak", &s)
	// "what" is a question word but streak is checked first
	assert.Contains(t, streakMsg, "2-day streak")

	today := f.Respond(RoleIndividual, "today", &s)
	assert.Contains(t, today, `"read" [DONE]`)
	assert.Contains(t, today, `"write" [TODO]`)

	prog := f.Respond(RoleIndividual, "progress", &s)
	assert.Contains(t, prog, "overdue")
}

func TestStreakTiers(t *testing.T) {
	f := NewFallback(fixedRand(0))
	for n, want := range map[int]string{0: "Start a streak", 1: "Nice start", 3: "Momentum", 7: "One week", 14: "Two weeks", 30: "Legendary"} {
		s := Summary{Stats: Stats{Streak: n}}
		assert.Contains(t, f.Respond(RoleIndividual, "streak", &s), want, n)
	}
}

func TestMotivationTemplatesFollowRand(t *testing.T) {
	s := sampleSummary()
	heads := map[string]bool{}
	for i := 0; i < 3; i++ {
		reply := NewFallback(fixedRand(i)).Respond(RoleIndividual, "I need motivation", &s)
		heads[strings.SplitN(reply, "\n", 2)[0]] = true
	}
	assert.Len(t, heads, 3)

	a := NewFallback(fixedRand(1)).Respond(RoleIndividual, "motivate me", &s)
	b := NewFallback(fixedRand(1)).Respond(RoleIndividual, "motivate me", &s)
	assert.Equal(t, a, b)
}

func TestCounselorFallback(t *testing.T) {
	f := NewFallback(fixedRand(0))
	s := sampleRoster()

	greet := f.Respond(RoleCounselor, "hello", &s)
	assert.Contains(t, greet, "Individuals: **2**")

	att := f.Respond(RoleCounselor, "who needs attention", &s)
	require.Contains(t, att, "Ben")
	assert.NotContains(t, att, "Ana")

	over := f.Respond(RoleCounselor, "give me an overview", &s)
	assert.Contains(t, over, "Ana")
	assert.Contains(t, over, "Ben")

	// no roster: specific categories defer to the default
	empty := BuildCounselor(nil, base)
	assert.Equal(t, defaultCounselor(f, &empty), f.Respond(RoleCounselor, "who needs attention", &empty))
}
