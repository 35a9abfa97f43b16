package hub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nfrund/rally/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMessageStore struct {
	mu    sync.Mutex
	saved []*domain.Message
	err   error
}

func (m *mockMessageStore) SaveMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	// Server-assigned, monotonically increasing timestamps.
	msg.Time = int64(len(m.saved) + 1)
	m.saved = append(m.saved, msg)
	return msg, nil
}

func (m *mockMessageStore) savedMessages() []*domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Message, len(m.saved))
	copy(out, m.saved)
	return out
}

type mockThreadStore struct {
	mu    sync.Mutex
	saved []*domain.PostMessage
	err   error
}

func (m *mockThreadStore) SavePostMessage(ctx context.Context, msg *domain.PostMessage) (*domain.PostMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	msg.Time = int64(len(m.saved) + 1)
	m.saved = append(m.saved, msg)
	return msg, nil
}

type routerFixture struct {
	registry *Registry
	messages *mockMessageStore
	threads  *mockThreadStore
	router   *Router
}

func newRouterFixture() *routerFixture {
	registry := NewRegistry()
	messages := &mockMessageStore{}
	threads := &mockThreadStore{}
	router := NewRouter(messages, threads, NewPublisher(registry))
	return &routerFixture{
		registry: registry,
		messages: messages,
		threads:  threads,
		router:   router,
	}
}

func TestRouter_DirectedMessageDelivery(t *testing.T) {
	f := newRouterFixture()

	a1 := newTestSession("alice")
	a2 := newTestSession("alice")
	b := newTestSession("bob")
	c := newTestSession("carol")
	for _, s := range []*Session{a1, a2, b, c} {
		f.registry.Register(s.UserID, s)
	}

	f.router.HandleInbound(context.Background(), a1,
		[]byte(`{"type":"message_send","toUserId":"bob","text":"hi"}`))

	require.Len(t, f.messages.saved, 1)
	assert.Equal(t, "alice", f.messages.saved[0].FromUserID)
	assert.Equal(t, "bob", f.messages.saved[0].ToUserID)

	// Sender echo on both of alice's sessions, one write to bob, nothing
	// to carol: exactly 3 writes.
	envsA1 := drain(t, a1)
	envsA2 := drain(t, a2)
	envsB := drain(t, b)
	require.Len(t, envsA1, 1)
	require.Len(t, envsA2, 1)
	require.Len(t, envsB, 1)
	assert.Empty(t, drain(t, c))

	assert.Equal(t, TypeMessageNew, envsB[0].Type)
	data, ok := envsB[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", data["text"])
}

func TestRouter_DirectedMessageMissingFields(t *testing.T) {
	f := newRouterFixture()
	s := newTestSession("alice")
	f.registry.Register(s.UserID, s)

	f.router.HandleInbound(context.Background(), s,
		[]byte(`{"type":"message_send","text":"no recipient"}`))
	f.router.HandleInbound(context.Background(), s,
		[]byte(`{"type":"message_send","toUserId":"bob"}`))

	// Dropped without persistence or delivery.
	assert.Empty(t, f.messages.saved)
	assert.Empty(t, drain(t, s))
}

func TestRouter_PersistFailureSuppressesPublish(t *testing.T) {
	f := newRouterFixture()
	f.messages.err = errors.New("store down")

	a := newTestSession("alice")
	b := newTestSession("bob")
	f.registry.Register(a.UserID, a)
	f.registry.Register(b.UserID, b)

	f.router.HandleInbound(context.Background(), a,
		[]byte(`{"type":"message_send","toUserId":"bob","text":"hi"}`))

	// Persist-before-publish: nothing may reach any session.
	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, b))
}

func TestRouter_SelfMessageDeliveredOnce(t *testing.T) {
	f := newRouterFixture()
	s := newTestSession("alice")
	f.registry.Register(s.UserID, s)

	f.router.HandleInbound(context.Background(), s,
		[]byte(`{"type":"message_send","toUserId":"alice","text":"note to self"}`))

	assert.Len(t, drain(t, s), 1)
}

func TestRouter_SubmissionOrderPreserved(t *testing.T) {
	f := newRouterFixture()
	a := newTestSession("alice")
	b := newTestSession("bob")
	f.registry.Register(a.UserID, a)
	f.registry.Register(b.UserID, b)

	f.router.HandleInbound(context.Background(), a,
		[]byte(`{"type":"message_send","toUserId":"bob","text":"first"}`))
	f.router.HandleInbound(context.Background(), a,
		[]byte(`{"type":"message_send","toUserId":"bob","text":"second"}`))

	require.Len(t, f.messages.saved, 2)
	assert.Equal(t, "first", f.messages.saved[0].Text)
	assert.Equal(t, "second", f.messages.saved[1].Text)
	assert.Less(t, f.messages.saved[0].Time, f.messages.saved[1].Time)

	envs := drain(t, b)
	require.Len(t, envs, 2)
	first, _ := envs[0].Data.(map[string]any)
	second, _ := envs[1].Data.(map[string]any)
	assert.Equal(t, "first", first["text"])
	assert.Equal(t, "second", second["text"])
}

func TestRouter_ThreadMessageBroadcast(t *testing.T) {
	f := newRouterFixture()

	sessions := []*Session{
		newTestSession("alice"),
		newTestSession("bob"),
		newTestSession("carol"),
	}
	for _, s := range sessions {
		f.registry.Register(s.UserID, s)
	}

	f.router.HandleInbound(context.Background(), sessions[0],
		[]byte(`{"type":"post_message_send","postId":"community_post:7","text":"anyone in?"}`))

	require.Len(t, f.threads.saved, 1)
	assert.Equal(t, "community_post:7", f.threads.saved[0].PostID)
	assert.Equal(t, "alice", f.threads.saved[0].FromUserID)

	for _, s := range sessions {
		envs := drain(t, s)
		require.Len(t, envs, 1, "session of %s", s.UserID)
		assert.Equal(t, TypePostMessageNew, envs[0].Type)
	}
}

func TestRouter_ThreadMessageMissingFields(t *testing.T) {
	f := newRouterFixture()
	s := newTestSession("alice")
	f.registry.Register(s.UserID, s)

	f.router.HandleInbound(context.Background(), s,
		[]byte(`{"type":"post_message_send","text":"no post"}`))

	assert.Empty(t, f.threads.saved)
	assert.Empty(t, drain(t, s))
}

func TestRouter_MalformedAndUnknownInput(t *testing.T) {
	f := newRouterFixture()
	s := newTestSession("alice")
	f.registry.Register(s.UserID, s)

	// None of these may panic, persist, or deliver anything.
	f.router.HandleInbound(context.Background(), s, []byte(`not json at all`))
	f.router.HandleInbound(context.Background(), s, []byte(`{"type":"mystery"}`))
	f.router.HandleInbound(context.Background(), s, []byte(``))

	assert.Empty(t, f.messages.saved)
	assert.Empty(t, f.threads.saved)
	assert.Empty(t, drain(t, s))
}
