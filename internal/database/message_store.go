package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/rally/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// SurrealMessageStore persists directed chat messages. It is one half of the
// durable event store the hub writes through before publishing.
type SurrealMessageStore struct {
	db *surrealdb.DB
}

// NewSurrealMessageStore creates a new SurrealMessageStore.
func NewSurrealMessageStore(db *surrealdb.DB) *SurrealMessageStore {
	return &SurrealMessageStore{db: db}
}

// SaveMessage appends a directed message. The timestamp is assigned here, at
// persistence time, so the stored order and the published order agree.
func (s *SurrealMessageStore) SaveMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	m.Time = time.Now().UnixMilli()

	query := `
		CREATE message CONTENT {
			fromUserId: $from_user_id,
			toUserId: $to_user_id,
			fromName: $from_name,
			toName: $to_name,
			text: $text,
			time: $time,
			postId: $post_id
		}
	`
	params := map[string]any{
		"from_user_id": m.FromUserID,
		"to_user_id":   m.ToUserID,
		"from_name":    m.FromName,
		"to_name":      m.ToName,
		"text":         m.Text,
		"time":         m.Time,
		"post_id":      m.PostID,
	}

	saved, err := QueryOne[domain.Message](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	if saved == nil {
		return nil, fmt.Errorf("message create returned no record")
	}
	return saved, nil
}

// Conversation returns the full message history between two users, oldest
// first.
func (s *SurrealMessageStore) Conversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	query := `
		SELECT * FROM message
		WHERE (fromUserId = $a AND toUserId = $b)
		   OR (fromUserId = $b AND toUserId = $a)
		ORDER BY time ASC
	`
	params := map[string]any{"a": userA, "b": userB}

	msgs, err := Query[domain.Message](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return msgs, nil
}
