package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/rally/internal/domain"
	"github.com/nfrund/rally/internal/pubsub"
)

// StatusUnauthorized is the close code sent when the handshake fails. It
// lives in the 4000–4999 application range so clients can tell an auth
// failure apart from a transport error.
const StatusUnauthorized = websocket.StatusCode(4401)

// writeWait bounds how long a single outbound write may block before the
// session is given up on.
const writeWait = 10 * time.Second

// Bridge owns the WebSocket endpoint: it runs the handshake, registers the
// session, and drives the read and write pumps for its lifetime.
type Bridge struct {
	verifier domain.TokenVerifier
	registry *Registry
	router   *Router
	events   pubsub.Publisher
}

// NewBridge wires the hub's connection-facing side together.
func NewBridge(verifier domain.TokenVerifier, registry *Registry, router *Router, events pubsub.Publisher) *Bridge {
	return &Bridge{
		verifier: verifier,
		registry: registry,
		router:   router,
		events:   events,
	}
}

// bearerToken extracts the credential from the Authorization header, falling
// back to the token query parameter. The header wins when both are present.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Handler returns the echo handler for the hub's upgrade endpoint.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		token := bearerToken(req)

		conn, err := websocket.Accept(c.Response(), req, &websocket.AcceptOptions{
			// Origin checking is handled by the deployment's reverse proxy.
			InsecureSkipVerify: true,
		})
		if err != nil {
			slog.Error("Failed to upgrade connection to WebSocket", "error", err)
			return nil
		}

		user, err := b.verifier.Verify(req.Context(), token)
		if err != nil {
			// Never registered; the close code is the only signal the client
			// gets.
			conn.Close(StatusUnauthorized, "unauthorized")
			slog.Info("Rejected WebSocket handshake", "error", err)
			return nil
		}

		s := newSession(user.Key(), conn)
		b.registry.Register(s.UserID, s)
		slog.Info("Session registered", "userID", s.UserID, "sessionID", s.ID)
		b.publishLifecycle(TopicClientConnected, s)

		go b.writePump(s)
		go b.readPump(s)
		return nil
	}
}

// readPump reads inbound frames in arrival order and hands each to the
// router. It exits when the transport closes from either end, which drives
// the session to its closed state.
func (b *Bridge) readPump(s *Session) {
	defer b.closeSession(s)

	for {
		_, raw, err := s.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("WebSocket closed by client", "userID", s.UserID)
			} else if err != io.EOF {
				slog.Error("WebSocket read error", "userID", s.UserID, "error", err)
			}
			return
		}
		b.router.HandleInbound(context.Background(), s, raw)
	}
}

// writePump drains the session's outbound queue onto the wire. Each write is
// individually bounded so one unresponsive peer cannot stall anything beyond
// its own session.
func (b *Bridge) writePump(s *Session) {
	defer s.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	ch := s.outbound()
	if ch == nil {
		return
	}
	for msg := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := s.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			slog.Error("WebSocket write error", "userID", s.UserID, "error", err)
			return
		}
	}
}

// closeSession performs the terminal transition: unregister, shut the
// outbound queue, close the transport. Duplicate close signals collapse into
// one net effect.
func (b *Bridge) closeSession(s *Session) {
	s.closeOnce.Do(func() {
		b.registry.Unregister(s.UserID, s)
		s.close()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		slog.Info("Session unregistered", "userID", s.UserID, "sessionID", s.ID)
		b.publishLifecycle(TopicClientDisconnected, s)
	})
}

func (b *Bridge) publishLifecycle(topic string, s *Session) {
	payload, err := json.Marshal(LifecycleEvent{UserID: s.UserID, SessionID: s.ID})
	if err != nil {
		slog.Error("Failed to marshal lifecycle event", "topic", topic, "error", err)
		return
	}
	msg := pubsub.Message{
		Topic:   topic,
		UserID:  s.UserID,
		Payload: payload,
		Metadata: map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := b.events.Publish(context.Background(), msg); err != nil {
		slog.Error("Failed to publish lifecycle event", "topic", topic, "userID", s.UserID, "error", err)
	}
}
