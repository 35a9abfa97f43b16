package hub

import (
	"encoding/json"
	"log/slog"

	"github.com/nfrund/rally/internal/domain"
)

// Publisher pushes server-generated envelopes to live sessions. It is the
// outward-facing delivery API used by both the router and the REST handlers.
// Delivery is best-effort: it reaches every session live at lookup time, and
// a failed write to one session never affects the others.
type Publisher struct {
	registry *Registry
}

// NewPublisher creates a Publisher over the given registry.
func NewPublisher(registry *Registry) *Publisher {
	return &Publisher{registry: registry}
}

// SendToUser serializes the envelope once and writes it to every session the
// user currently holds. A user with no sessions is a no-op.
func (p *Publisher) SendToUser(userID string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal envelope", "type", env.Type, "error", err)
		return
	}
	p.deliver(p.registry.Lookup(userID), payload, env.Type)
}

// Broadcast writes the envelope to every live session across all users.
// Clients filter thread messages by postId themselves; the hub keeps no
// per-topic subscription index.
func (p *Publisher) Broadcast(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal envelope", "type", env.Type, "error", err)
		return
	}
	p.deliver(p.registry.All(), payload, env.Type)
}

func (p *Publisher) deliver(sessions []*Session, payload []byte, eventType string) {
	for _, s := range sessions {
		if !s.Send(payload) {
			// Slow or already-closed session; the write is dropped for this
			// session only.
			slog.Warn("Dropping outbound event for session",
				"type", eventType,
				"userID", s.UserID,
				"sessionID", s.ID)
		}
	}
}

// MessageNew delivers a persisted directed message to one user's sessions.
func (p *Publisher) MessageNew(userID string, m *domain.Message) {
	p.SendToUser(userID, Envelope{Type: TypeMessageNew, Data: m.Wire()})
}

// PostMessageNew broadcasts a persisted thread message to all sessions.
func (p *Publisher) PostMessageNew(m *domain.PostMessage) {
	p.Broadcast(Envelope{Type: TypePostMessageNew, Data: m.Wire()})
}

// PostCreated broadcasts a newly created board post.
func (p *Publisher) PostCreated(post *domain.CommunityPost) {
	p.Broadcast(Envelope{Type: TypePostCreated, Data: post.Wire()})
}

// PostUpdated broadcasts an updated board post.
func (p *Publisher) PostUpdated(post *domain.CommunityPost) {
	p.Broadcast(Envelope{Type: TypePostUpdated, Data: post.Wire()})
}

// PostDeleted broadcasts a deleted board post's identifier.
func (p *Publisher) PostDeleted(id string) {
	p.Broadcast(Envelope{Type: TypePostDeleted, Data: map[string]string{"id": id}})
}
