package assistant

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces outbound calls at least interval apart across all callers
// sharing it. Concurrent callers queue behind each other's reservations.
type Pacer struct {
	limiter *rate.Limiter
	clock   Clock
	sleep   Sleeper
}

func NewPacer(interval time.Duration, clock Clock, sleep Sleeper) *Pacer {
	if clock == nil {
		clock = SystemClock
	}
	if sleep == nil {
		sleep = Sleep
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock,
		sleep:   sleep,
	}
}

// Wait blocks until the caller may dispatch and returns how long it waited.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return 0, errors.New("pacer: reservation refused")
	}
	d := r.DelayFrom(now)
	if d <= 0 {
		return 0, nil
	}
	if err := p.sleep(ctx, d); err != nil {
		r.CancelAt(p.clock.Now())
		return 0, err
	}
	return d, nil
}
