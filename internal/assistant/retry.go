package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Generator turns a conversation into reply text.
type Generator interface {
	Generate(ctx context.Context, contents []Content) (string, error)
}

type RetryConfig struct {
	// MaxAttempts includes the first call.
	MaxAttempts int
	// InitialBackoff doubles after every retry.
	InitialBackoff time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second}
}

// ExhaustedError is returned once every attempt failed with a retryable
// error.
type ExhaustedError struct {
	Attempts  int
	LastError error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// RetryingClient paces every attempt and retries rate limits and transport
// failures with doubling backoff. Other status errors and empty replies
// stop at once.
type RetryingClient struct {
	next    Generator
	pacer   *Pacer
	cfg     RetryConfig
	sleep   Sleeper
	log     zerolog.Logger
	metrics *Metrics
}

func NewRetryingClient(next Generator, pacer *Pacer, cfg RetryConfig, sleep Sleeper, log zerolog.Logger, metrics *Metrics) *RetryingClient {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &RetryingClient{next: next, pacer: pacer, cfg: cfg, sleep: sleep, log: log, metrics: metrics}
}

func (c *RetryingClient) Generate(ctx context.Context, contents []Content) (string, error) {
	backoff := c.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if c.pacer != nil {
			waited, err := c.pacer.Wait(ctx)
			if err != nil {
				return "", err
			}
			c.metrics.observePacing(waited)
		}

		reply, err := c.next.Generate(ctx, contents)
		c.metrics.countAttempt(outcome(err))
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) {
			return "", err
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		c.log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.cfg.MaxAttempts).
			Dur("backoff", backoff).
			Msg("upstream call failed, retrying")

		if err := c.sleep(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}

	return "", &ExhaustedError{Attempts: c.cfg.MaxAttempts, LastError: lastErr}
}

// retryable is true for 429s and transport failures, timeouts included.
func retryable(err error) bool {
	if errors.Is(err, ErrNoReply) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.RateLimited()
	}
	return true
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se) && se.RateLimited():
		return "rate_limited"
	case errors.As(err, &se):
		return "status_error"
	case errors.Is(err, ErrNoReply):
		return "no_reply"
	default:
		return "transport_error"
	}
}
