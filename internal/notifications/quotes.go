package notifications

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog"
)

var DefaultQuotes = []Quote{
	{"The only way to do great work is to love what you do.", "Steve Jobs"},
	{"Believe you can and you're halfway there.", "Theodore Roosevelt"},
	{"Success is not final, failure is not fatal: it is the courage to continue that counts.", "Winston Churchill"},
	{"The future belongs to those who believe in the beauty of their dreams.", "Eleanor Roosevelt"},
	{"It does not matter how slowly you go as long as you do not stop.", "Confucius"},
	{"Everything you've ever wanted is on the other side of fear.", "George Addair"},
	{"The secret of getting ahead is getting started.", "Mark Twain"},
	{"Don't watch the clock; do what it does. Keep going.", "Sam Levenson"},
	{"You are never too old to set another goal or to dream a new dream.", "C.S. Lewis"},
	{"Start where you are. Use what you have. Do what you can.", "Arthur Ashe"},
}

type QuoteStore interface {
	Quotes(ctx context.Context) ([]Quote, error)
	SeedQuotes(ctx context.Context, quotes []Quote) error
}

type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Quotes picks a random stored quote, seeding the table with DefaultQuotes
// the first time it is found empty.
type Quotes struct {
	store QuoteStore
	log   zerolog.Logger

	mu  sync.Mutex
	rnd Rand
}

func NewQuotes(store QuoteStore, rnd Rand, log zerolog.Logger) *Quotes {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Quotes{store: store, rnd: rnd, log: log}
}

func (q *Quotes) pick(list []Quote) Quote {
	q.mu.Lock()
	defer q.mu.Unlock()
	return list[q.rnd.IntN(len(list))]
}

// Pick never fails: store problems fall back to a built-in quote.
func (q *Quotes) Pick(ctx context.Context) Quote {
	list, err := q.load(ctx)
	if err != nil {
		q.log.Warn().Err(err).Msg("quotes unavailable, using built-in list")
		return q.pick(DefaultQuotes)
	}
	return q.pick(list)
}

func (q *Quotes) load(ctx context.Context) ([]Quote, error) {
	list, err := q.store.Quotes(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		return list, nil
	}
	if err := q.store.SeedQuotes(ctx, DefaultQuotes); err != nil {
		return nil, err
	}
	list, err = q.store.Quotes(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no quotes after seeding")
	}
	return list, nil
}

// Excerpt shortens s to n runes, marking the cut with "...".
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// PersonalMessage prefers praise for today's work over the pending count.
func PersonalMessage(completedToday, pending int) string {
	switch {
	case completedToday > 0:
		return fmt.Sprintf("🎉 Amazing! You've completed %d task%s today!", completedToday, plural(completedToday))
	case pending > 0:
		return fmt.Sprintf("📋 You have %d task%s waiting. You've got this!", pending, plural(pending))
	default:
		return ""
	}
}

func ReminderMessage(open int, q Quote) string {
	return fmt.Sprintf("📋 You have %d task%s remaining today! %q - %s", open, plural(open), q.Quote, q.Author)
}
