package chathistory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counsel-tasks-backend/internal/auth"
)

func TestTitleFor(t *testing.T) {
	title, ok := titleFor(RoleUser, "plan my week", 1)
	require.True(t, ok)
	assert.Equal(t, "plan my week", title)

	long := strings.Repeat("ж", 60)
	title, ok = titleFor(RoleUser, long, 1)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("ж", 50)+"...", title)

	_, ok = titleFor(RoleUser, "second", 2)
	assert.False(t, ok)
	_, ok = titleFor(RoleAssistant, "reply", 1)
	assert.False(t, ok)
}

// memStore mirrors Store's ownership and title rules in memory.
type memStore struct {
	sessions map[uuid.UUID]*Session
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{sessions: map[uuid.UUID]*Session{}, clock: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memStore) Sessions(_ context.Context, userID int) ([]Session, error) {
	out := []Session{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, userID int, title string) (Session, error) {
	if title == "" {
		title = defaultTitle
	}
	now := m.tick()
	s := &Session{ID: uuid.New(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	s.Messages = []Message{{ID: uuid.New(), SessionID: s.ID, Role: RoleAssistant, Content: Greeting, CreatedAt: now}}
	m.sessions[s.ID] = s
	return *s, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID, userID int) (Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return Session{}, ErrNotFound
	}
	return *s, nil
}

func (m *memStore) AddMessage(_ context.Context, id uuid.UUID, userID int, role, content string) (Message, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return Message{}, ErrNotFound
	}
	now := m.tick()
	msg := Message{ID: uuid.New(), SessionID: id, Role: role, Content: content, CreatedAt: now}
	s.Messages = append(s.Messages, msg)

	users := 0
	for _, x := range s.Messages {
		if x.Role == RoleUser {
			users++
		}
	}
	if title, ok := titleFor(role, content, users); ok {
		s.Title = title
	}
	s.UpdatedAt = now
	return msg, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID, userID int) error {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func request(method, target, id string, userID int, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if id != "" {
		r.SetPathValue("id", id)
	}
	if userID != 0 {
		r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: userID}))
	}
	return r
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

func TestChatHistoryFlow(t *testing.T) {
	store := newMemStore()
	list := Handler(store)
	one := SessionHandler(store)

	rec := serve(list, request(http.MethodPost, "/chat-history", "", 1, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var sess Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sess))
	assert.Equal(t, "New Chat", sess.Title)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, RoleAssistant, sess.Messages[0].Role)
	created := sess.UpdatedAt

	id := sess.ID.String()
	rec = serve(one, request(http.MethodPost, "/chat-history/"+id, id, 1, `{"role":"user","content":"How do I study for finals?"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = serve(one, request(http.MethodPost, "/chat-history/"+id, id, 1, `{"role":"user","content":"and for quizzes"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(one, request(http.MethodGet, "/chat-history/"+id, id, 1, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sess))
	assert.Equal(t, "How do I study for finals?", sess.Title)
	assert.Len(t, sess.Messages, 3)
	assert.True(t, sess.UpdatedAt.After(created))

	// other users cannot see or touch it
	assert.Equal(t, http.StatusNotFound, serve(one, request(http.MethodGet, "/chat-history/"+id, id, 2, "")).Code)
	assert.Equal(t, http.StatusNotFound, serve(one, request(http.MethodDelete, "/chat-history/"+id, id, 2, "")).Code)

	rec = serve(list, request(http.MethodGet, "/chat-history", "", 1, ""))
	var all []Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all, 1)

	rec = serve(one, request(http.MethodDelete, "/chat-history/"+id, id, 1, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.sessions)
}

func TestChatHistoryRejects(t *testing.T) {
	store := newMemStore()
	sess, _ := store.Create(context.Background(), 1, "Mine")
	id := sess.ID.String()
	one := SessionHandler(store)

	assert.Equal(t, http.StatusUnauthorized, serve(Handler(store), request(http.MethodGet, "/chat-history", "", 0, "")).Code)
	assert.Equal(t, http.StatusNotFound, serve(one, request(http.MethodGet, "/chat-history/nope", "nope", 1, "")).Code)
	assert.Equal(t, http.StatusBadRequest, serve(one, request(http.MethodPost, "/chat-history/"+id, id, 1, `{"role":"system","content":"x"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, serve(one, request(http.MethodPost, "/chat-history/"+id, id, 1, `{"role":"user","content":"  "}`)).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(one, request(http.MethodPatch, "/chat-history/"+id, id, 1, "")).Code)

	rec := serve(Handler(store), request(http.MethodPost, "/chat-history", "", 1, `{"title":" Exams "}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var created Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Exams", created.Title)
}
