package analytics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	env   Envelope
	name  string
	props any
	key   string
	calls int
	err   error
}

func (s *recordingSink) Log(_ context.Context, env Envelope, name string, props any, key string) error {
	s.env, s.name, s.props, s.key = env, name, props, key
	s.calls++
	return s.err
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Platform", " IOS ")
	r.Header.Set("X-App-Version", "1.4.0")
	r.Header.Set("X-Device-Locale", "en-US")
	r.Header.Set("X-Session-Id", "s-1")

	env := FromRequest(r)
	assert.Equal(t, "ios", env.Platform)
	assert.Equal(t, "1.4.0", env.AppVersion)
	assert.Equal(t, "en-US", env.DeviceLocale)
	assert.Equal(t, "s-1", env.SessionID)
}

func TestFromRequestUnknownPlatform(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "unknown", FromRequest(r).Platform)

	r.Header.Set("X-Platform", "fridge")
	assert.Equal(t, "unknown", FromRequest(r).Platform)
}

func TestSourceEventKeyPrefersIdempotencyKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("X-Source-Event-Key", "fallback")
	assert.Equal(t, "fallback", SourceEventKeyFromRequest(r))

	r.Header.Set("Idempotency-Key", "primary")
	assert.Equal(t, "primary", SourceEventKeyFromRequest(r))
}

func TestRecordUsesContextUser(t *testing.T) {
	sink := &recordingSink{}
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r = r.WithContext(WithUserID(r.Context(), 42))
	r.Header.Set("Idempotency-Key", "k1")

	require.NoError(t, Record(r, sink, EventTaskCreated, map[string]any{"task_id": 7}))
	assert.Equal(t, 42, sink.env.UserID)
	assert.Equal(t, EventTaskCreated, sink.name)
	assert.Equal(t, "k1", sink.key)
}

func TestRecordNilSink(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, Record(r, nil, EventTaskCreated, nil))
}

func TestRecordReturnsSinkError(t *testing.T) {
	boom := errors.New("db down")
	sink := &recordingSink{err: boom}
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.ErrorIs(t, Record(r, sink, EventTaskCreated, nil), boom)
	assert.Equal(t, 1, sink.calls)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	uid, ok := UserIDFromContext(WithUserID(context.Background(), 9))
	assert.True(t, ok)
	assert.Equal(t, 9, uid)
}

func TestAppOpenedHandler(t *testing.T) {
	sink := &recordingSink{}
	h := AppOpenedHandler(sink)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/analytics/app-opened", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r := httptest.NewRequest(http.MethodPost, "/analytics/app-opened",
		strings.NewReader(`{"cold_start":true,"from":"icon","page":"assistant"}`))
	r = r.WithContext(WithUserID(r.Context(), 3))
	rec = httptest.NewRecorder()
	h(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, sink.calls)
	assert.Equal(t, "app_opened", sink.name)
	props := sink.props.(map[string]any)
	assert.Equal(t, true, props["cold_start"])
	assert.Equal(t, "assistant", props["page"])
	assert.Equal(t, "icon", props["from"])
}

func TestAppOpenedHandlerDefaultsSource(t *testing.T) {
	sink := &recordingSink{}
	r := httptest.NewRequest(http.MethodPost, "/analytics/app-opened", strings.NewReader(`not json`))
	r = r.WithContext(WithUserID(r.Context(), 3))
	rec := httptest.NewRecorder()
	AppOpenedHandler(sink)(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	props := sink.props.(map[string]any)
	assert.Equal(t, "unknown", props["from"])
	assert.Equal(t, false, props["cold_start"])
}
