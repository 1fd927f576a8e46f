// Package analytics records product events into the analytics_events table.
package analytics

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

type ctxKey struct{}

// Event names written by the handlers.
const (
	EventAppOpened       = "app_opened"
	EventTaskCreated     = "task_created"
	EventTaskCompleted   = "task_completed"
	EventTaskUncompleted = "task_uncompleted"
	EventAssistantReply  = "assistant_reply"
	EventFeedbackSent    = "feedback_sent"
	EventCommentAdded    = "task_comment_created"
	EventIndividualAdded = "individual_assigned"
)

var platforms = map[string]bool{"ios": true, "android": true, "web": true}

// Envelope is the request metadata stored next to every event.
type Envelope struct {
	UserID       int
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
}

// Sink records events. Failures never break the calling flow, so Log only
// reports errors for callers that want to log them.
type Sink interface {
	Log(ctx context.Context, env Envelope, eventName string, props any, sourceEventKey string) error
}

func header(r *http.Request, name string) string {
	return strings.TrimSpace(r.Header.Get(name))
}

// FromRequest builds the envelope from client headers. Unknown platforms
// collapse to "unknown".
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(header(r, "X-Platform"))
	if !platforms[platform] {
		platform = "unknown"
	}

	locale := header(r, "Accept-Language")
	if locale == "" {
		locale = header(r, "X-Device-Locale")
	}

	return Envelope{
		SessionID:    header(r, "X-Session-Id"),
		Platform:     platform,
		AppVersion:   header(r, "X-App-Version"),
		DeviceLocale: locale,
	}
}

// SourceEventKeyFromRequest returns the client idempotency key, if any.
// Idempotency-Key wins over X-Source-Event-Key.
func SourceEventKeyFromRequest(r *http.Request) string {
	if k := header(r, "Idempotency-Key"); k != "" {
		return k
	}
	return header(r, "X-Source-Event-Key")
}

// Record logs one event for the request's user. A sink error is logged
// and returned; callers normally ignore it.
func Record(r *http.Request, sink Sink, eventName string, props any) error {
	if sink == nil {
		return nil
	}
	env := FromRequest(r)
	if uid, ok := UserIDFromContext(r.Context()); ok {
		env.UserID = uid
	}
	err := sink.Log(r.Context(), env, eventName, props, SourceEventKeyFromRequest(r))
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("event", eventName).Msg("analytics event dropped")
	}
	return err
}

func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	uid, ok := ctx.Value(ctxKey{}).(int)
	return uid, ok
}

// Nop drops every event.
type Nop struct{}

func (Nop) Log(context.Context, Envelope, string, any, string) error { return nil }
