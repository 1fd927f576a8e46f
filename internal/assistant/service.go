package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"counsel-tasks-backend/internal/tasks"
)

// TaskSource is the read side of the task store.
type TaskSource interface {
	RecentTasks(ctx context.Context, userID, limit int) ([]tasks.Task, error)
	RosterTasks(ctx context.Context, counselorID, limit int) ([]tasks.Member, error)
}

// ContextWindow is how many recent tasks feed a summary, per person.
const ContextWindow = 100

type Source string

const (
	SourceModel    Source = "model"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

type Request struct {
	UserID  int
	Role    Role
	Message string
	History []Turn
}

type Reply struct {
	Text   string `json:"response"`
	Source Source `json:"source"`
}

type Options struct {
	Tasks TaskSource
	// Generator is nil when no API key is configured; every request then
	// gets a fallback reply.
	Generator Generator
	Cache     *Cache
	Fallback  *Fallback
	Clock     Clock
	Location  *time.Location
	Logger    zerolog.Logger
	Metrics   *Metrics
}

type Service struct {
	tasks    TaskSource
	gen      Generator
	cache    *Cache
	fallback *Fallback
	clock    Clock
	loc      *time.Location
	log      zerolog.Logger
	metrics  *Metrics
}

func NewService(opts Options) *Service {
	s := &Service{
		tasks:    opts.Tasks,
		gen:      opts.Generator,
		cache:    opts.Cache,
		fallback: opts.Fallback,
		clock:    opts.Clock,
		loc:      opts.Location,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.fallback == nil {
		s.fallback = NewFallback(nil)
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Summarize fetches the caller's tasks and builds the summary for role.
func (s *Service) Summarize(ctx context.Context, userID int, role Role) (Summary, error) {
	now := s.clock.Now().In(s.loc)
	if role == RoleCounselor {
		roster, err := s.tasks.RosterTasks(ctx, userID, ContextWindow)
		if err != nil {
			return Summary{}, fmt.Errorf("fetch roster tasks: %w", err)
		}
		return BuildCounselor(roster, now), nil
	}

	list, err := s.tasks.RecentTasks(ctx, userID, ContextWindow)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch tasks: %w", err)
	}
	return BuildIndividual(list, now), nil
}

// Reply answers one message. Generation problems never surface as errors;
// they end in a fallback reply. The only error is a failed task fetch.
func (s *Service) Reply(ctx context.Context, req Request) (Reply, error) {
	summary, err := s.Summarize(ctx, req.UserID, req.Role)
	if err != nil {
		return Reply{}, err
	}

	if s.gen == nil {
		s.log.Debug().Msg("no generator configured, using fallback")
		return s.fallbackReply(req, &summary), nil
	}

	key := CacheKey(req.Role, req.Message)
	if s.cache != nil {
		if text, ok := s.cache.Get(key); ok {
			s.metrics.countReply(SourceCache)
			return Reply{Text: text, Source: SourceCache}, nil
		}
	}

	prompt := Assemble(summary, req.History, req.Message)
	text, err := s.gen.Generate(ctx, prompt.Contents())
	if err != nil {
		s.log.Warn().Err(err).Str("role", string(req.Role)).Msg("generation failed, using fallback")
		return s.fallbackReply(req, &summary), nil
	}

	if s.cache != nil {
		s.cache.Put(key, text)
	}
	s.metrics.countReply(SourceModel)
	return Reply{Text: text, Source: SourceModel}, nil
}

func (s *Service) fallbackReply(req Request, summary *Summary) Reply {
	s.metrics.countReply(SourceFallback)
	return Reply{Text: s.fallback.Respond(req.Role, req.Message, summary), Source: SourceFallback}
}
