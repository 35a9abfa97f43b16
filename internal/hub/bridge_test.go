package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/rally/internal/domain"
	"github.com/nfrund/rally/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier resolves fixed tokens to users, standing in for the
// credential store.
type fakeVerifier struct {
	users map[string]*domain.User
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*domain.User, error) {
	user, ok := f.users[token]
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

type bridgeFixture struct {
	ts       *httptest.Server
	registry *Registry
	messages *mockMessageStore
	threads  *mockThreadStore
	bus      *pubsub.Bus
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	verifier := &fakeVerifier{users: map[string]*domain.User{
		"token-alice": {Email: "alice"},
		"token-bob":   {Email: "bob"},
	}}

	registry := NewRegistry()
	messages := &mockMessageStore{}
	threads := &mockThreadStore{}
	publisher := NewPublisher(registry)
	router := NewRouter(messages, threads, publisher)
	bus := pubsub.NewBus()
	bridge := NewBridge(verifier, registry, router, bus)

	e := echo.New()
	e.GET("/ws", bridge.Handler())

	ts := httptest.NewServer(e)
	t.Cleanup(func() {
		ts.Close()
		bus.Close()
	})

	return &bridgeFixture{
		ts:       ts,
		registry: registry,
		messages: messages,
		threads:  threads,
		bus:      bus,
	}
}

// dial opens a client connection, carrying the token in the Authorization
// header or as a query parameter.
func (f *bridgeFixture) dial(t *testing.T, token string, viaQuery bool) *gws.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	header := http.Header{}
	if viaQuery {
		wsURL += "?token=" + token
	} else {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := gws.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *gws.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestBridge_UnauthorizedHandshake(t *testing.T) {
	f := newBridgeFixture(t)

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.ts.URL, "http")+"/ws?token=bogus", nil)
	require.NoError(t, err)
	defer conn.Close()

	// The server accepts the upgrade, then immediately closes with the
	// application auth code. The session is never registered.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*gws.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, 4401, closeErr.Code)

	assert.Equal(t, 0, f.registry.UserCount())
}

func TestBridge_MissingTokenRejected(t *testing.T) {
	f := newBridgeFixture(t)

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*gws.CloseError)
	require.True(t, ok)
	assert.Equal(t, 4401, closeErr.Code)
}

func TestBridge_EndToEnd(t *testing.T) {
	f := newBridgeFixture(t)

	// Collect lifecycle events off the bus as they happen.
	var lifecycleMu sync.Mutex
	connected := make(map[string]int)
	require.NoError(t, f.bus.Subscribe(context.Background(), TopicClientConnected,
		func(ctx context.Context, msg pubsub.Message) error {
			var ev LifecycleEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return err
			}
			lifecycleMu.Lock()
			connected[ev.UserID]++
			lifecycleMu.Unlock()
			return nil
		}))

	// Alice connects with the header credential.
	alice1 := f.dial(t, "token-alice", false)
	require.Eventually(t, func() bool {
		return len(f.registry.Lookup("alice")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A second tab for alice, this time via the query parameter.
	alice2 := f.dial(t, "token-alice", true)
	require.Eventually(t, func() bool {
		return len(f.registry.Lookup("alice")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	bob := f.dial(t, "token-bob", false)
	require.Eventually(t, func() bool {
		return f.registry.UserCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Alice sends bob a directed message.
	require.NoError(t, alice1.WriteMessage(gws.TextMessage,
		[]byte(`{"type":"message_send","toUserId":"bob","toName":"Bob","text":"hi"}`)))

	// Both of alice's sessions and bob's session each receive one
	// message_new with the persisted record.
	for _, conn := range []*gws.Conn{alice1, alice2, bob} {
		env := readEnvelope(t, conn)
		assert.Equal(t, TypeMessageNew, env.Type)
		data, ok := env.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "hi", data["text"])
		assert.Equal(t, "alice", data["fromUserId"])
	}
	require.Len(t, f.messages.savedMessages(), 1)

	// Bob disconnects; his registry entry disappears.
	bob.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
	bob.Close()
	require.Eventually(t, func() bool {
		return len(f.registry.Lookup("bob")) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// A thread message now only reaches alice's two sessions.
	require.NoError(t, alice1.WriteMessage(gws.TextMessage,
		[]byte(`{"type":"post_message_send","postId":"community_post:9","text":"still on?"}`)))

	for _, conn := range []*gws.Conn{alice1, alice2} {
		env := readEnvelope(t, conn)
		assert.Equal(t, TypePostMessageNew, env.Type)
		data, ok := env.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "community_post:9", data["postId"])
	}

	// The bus saw one connected event per session.
	require.Eventually(t, func() bool {
		lifecycleMu.Lock()
		defer lifecycleMu.Unlock()
		return connected["alice"] == 2 && connected["bob"] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBridge_MalformedFrameKeepsSessionAlive(t *testing.T) {
	f := newBridgeFixture(t)

	alice := f.dial(t, "token-alice", false)
	require.Eventually(t, func() bool {
		return len(f.registry.Lookup("alice")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Garbage is dropped; the loop keeps going and the next valid event
	// still round-trips.
	require.NoError(t, alice.WriteMessage(gws.TextMessage, []byte("garbage{{")))
	require.NoError(t, alice.WriteMessage(gws.TextMessage,
		[]byte(`{"type":"message_send","toUserId":"alice","text":"still here"}`)))

	env := readEnvelope(t, alice)
	assert.Equal(t, TypeMessageNew, env.Type)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "still here", data["text"])
}

func TestBridge_HeaderTakesPrecedenceOverQuery(t *testing.T) {
	f := newBridgeFixture(t)

	// Valid header plus a bogus query token: the header must win.
	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws?token=bogus"
	header := http.Header{}
	header.Set("Authorization", "Bearer token-alice")

	conn, _, err := gws.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return len(f.registry.Lookup("alice")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
