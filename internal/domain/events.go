package domain

import (
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// maxJSONSafeTime is the largest integer a JSON consumer can represent
// without losing precision (2^53 - 1, Number.MAX_SAFE_INTEGER).
const maxJSONSafeTime = int64(1)<<53 - 1

// JSONSafeTime narrows a millisecond timestamp to the range JSON numbers can
// carry exactly. Values outside ±(2^53-1) are clamped rather than silently
// truncated by the encoder on the client side.
func JSONSafeTime(t int64) int64 {
	if t > maxJSONSafeTime {
		return maxJSONSafeTime
	}
	if t < -maxJSONSafeTime {
		return -maxJSONSafeTime
	}
	return t
}

// Message is a directed chat message between two users. Time is assigned by
// the store at persistence, in milliseconds since the epoch.
type Message struct {
	ID         *surrealmodels.RecordID `json:"id,omitempty"`
	FromUserID string                  `json:"fromUserId"`
	ToUserID   string                  `json:"toUserId"`
	FromName   string                  `json:"fromName"`
	ToName     string                  `json:"toName"`
	Text       string                  `json:"text"`
	Time       int64                   `json:"time"`
	PostID     *string                 `json:"postId,omitempty"`
}

// WireMessage is the client-facing shape of a stored message.
type WireMessage struct {
	ID         string  `json:"id"`
	FromUserID string  `json:"fromUserId"`
	ToUserID   string  `json:"toUserId"`
	FromName   string  `json:"fromName"`
	ToName     string  `json:"toName"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"`
	PostID     *string `json:"postId,omitempty"`
}

// Wire converts the stored record into its transport shape, narrowing the
// timestamp to a JSON-safe number.
func (m *Message) Wire() WireMessage {
	w := WireMessage{
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		FromName:   m.FromName,
		ToName:     m.ToName,
		Text:       m.Text,
		Time:       JSONSafeTime(m.Time),
		PostID:     m.PostID,
	}
	if m.ID != nil {
		w.ID = m.ID.String()
	}
	return w
}

// PostMessage is one message in a community post's shared thread.
type PostMessage struct {
	ID         *surrealmodels.RecordID `json:"id,omitempty"`
	PostID     string                  `json:"postId"`
	FromUserID string                  `json:"fromUserId"`
	FromName   string                  `json:"fromName"`
	Text       string                  `json:"text"`
	Time       int64                   `json:"time"`
}

// WirePostMessage is the client-facing shape of a stored thread message.
type WirePostMessage struct {
	ID         string `json:"id"`
	PostID     string `json:"postId"`
	FromUserID string `json:"fromUserId"`
	FromName   string `json:"fromName"`
	Text       string `json:"text"`
	Time       int64  `json:"time"`
}

// Wire converts the stored record into its transport shape.
func (m *PostMessage) Wire() WirePostMessage {
	w := WirePostMessage{
		PostID:     m.PostID,
		FromUserID: m.FromUserID,
		FromName:   m.FromName,
		Text:       m.Text,
		Time:       JSONSafeTime(m.Time),
	}
	if m.ID != nil {
		w.ID = m.ID.String()
	}
	return w
}

// CommunityPost is a board entry announcing open spots for a pickup game.
type CommunityPost struct {
	ID        *surrealmodels.RecordID `json:"id,omitempty"`
	UserID    string                  `json:"userId"`
	UserName  string                  `json:"userName"`
	Sport     string                  `json:"sport"`
	Available int                     `json:"available"`
	Total     int                     `json:"total"`
	Message   string                  `json:"message"`
	Locality  string                  `json:"locality"`
	Latitude  *float64                `json:"latitude,omitempty"`
	Longitude *float64                `json:"longitude,omitempty"`
	Time      int64                   `json:"time"`
}

// WireCommunityPost is the client-facing shape of a stored post.
type WireCommunityPost struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	UserName  string   `json:"userName"`
	Sport     string   `json:"sport"`
	Available int      `json:"available"`
	Total     int      `json:"total"`
	Message   string   `json:"message"`
	Locality  string   `json:"locality"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Time      int64    `json:"time"`
}

// Wire converts the stored record into its transport shape.
func (p *CommunityPost) Wire() WireCommunityPost {
	w := WireCommunityPost{
		UserID:    p.UserID,
		UserName:  p.UserName,
		Sport:     p.Sport,
		Available: p.Available,
		Total:     p.Total,
		Message:   p.Message,
		Locality:  p.Locality,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Time:      JSONSafeTime(p.Time),
	}
	if p.ID != nil {
		w.ID = p.ID.String()
	}
	return w
}
