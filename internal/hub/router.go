package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nfrund/rally/internal/domain"
)

// MessageStore persists directed messages before they are published.
type MessageStore interface {
	SaveMessage(ctx context.Context, m *domain.Message) (*domain.Message, error)
}

// ThreadStore persists shared-thread messages before they are broadcast.
type ThreadStore interface {
	SavePostMessage(ctx context.Context, m *domain.PostMessage) (*domain.PostMessage, error)
}

// Router interprets inbound client events, persists them, and hands the
// stored record to the publisher. Requests with missing required fields are
// dropped without a response; the client never sees an error frame.
type Router struct {
	messages  MessageStore
	threads   ThreadStore
	publisher *Publisher
}

// NewRouter creates a Router over the given stores and publisher.
func NewRouter(messages MessageStore, threads ThreadStore, publisher *Publisher) *Router {
	return &Router{messages: messages, threads: threads, publisher: publisher}
}

// HandleInbound processes one raw frame from an open session. Unparseable
// payloads are logged and dropped; the read loop keeps running regardless of
// what arrives here.
func (r *Router) HandleInbound(ctx context.Context, s *Session, raw []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		slog.Debug("Dropping unparseable inbound event", "userID", s.UserID, "error", err)
		return
	}

	switch ev.Type {
	case TypeMessageSend:
		r.handleDirected(ctx, s, ev)
	case TypePostMessageSend:
		r.handleThread(ctx, s, ev)
	default:
		slog.Debug("Dropping inbound event with unknown type", "type", ev.Type, "userID", s.UserID)
	}
}

// handleDirected persists a directed message and delivers it to the sender's
// own sessions (echo) and the recipient's sessions. Persistence comes first:
// an event that failed to persist is never published.
func (r *Router) handleDirected(ctx context.Context, s *Session, ev inboundEvent) {
	if ev.ToUserID == "" || ev.Text == "" {
		slog.Debug("Dropping directed message with missing fields", "userID", s.UserID)
		return
	}

	msg := &domain.Message{
		FromUserID: s.UserID,
		ToUserID:   ev.ToUserID,
		FromName:   ev.FromName,
		ToName:     ev.ToName,
		Text:       ev.Text,
	}
	if ev.PostID != "" {
		msg.PostID = &ev.PostID
	}

	saved, err := r.messages.SaveMessage(ctx, msg)
	if err != nil {
		slog.Error("Failed to persist directed message", "userID", s.UserID, "error", err)
		return
	}

	r.publisher.MessageNew(s.UserID, saved)
	if ev.ToUserID != s.UserID {
		r.publisher.MessageNew(ev.ToUserID, saved)
	}
}

// handleThread persists a shared-thread message and broadcasts it to every
// connected session; recipients filter by postId on their side.
func (r *Router) handleThread(ctx context.Context, s *Session, ev inboundEvent) {
	if ev.PostID == "" || ev.Text == "" {
		slog.Debug("Dropping thread message with missing fields", "userID", s.UserID)
		return
	}

	msg := &domain.PostMessage{
		PostID:     ev.PostID,
		FromUserID: s.UserID,
		FromName:   ev.FromName,
		Text:       ev.Text,
	}

	saved, err := r.threads.SavePostMessage(ctx, msg)
	if err != nil {
		slog.Error("Failed to persist thread message", "userID", s.UserID, "error", err)
		return
	}

	r.publisher.PostMessageNew(saved)
}
