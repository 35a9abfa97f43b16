package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nfrund/rally/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SurrealPostStore persists community posts and their shared message
// threads. Thread messages are the other half of the hub's durable event
// store.
type SurrealPostStore struct {
	db *surrealdb.DB
}

// NewSurrealPostStore creates a new SurrealPostStore.
func NewSurrealPostStore(db *surrealdb.DB) *SurrealPostStore {
	return &SurrealPostStore{db: db}
}

// recordID splits a "table:id" string into the driver's record ID type.
func recordID(id, table string) *surrealmodels.RecordID {
	parts := strings.SplitN(id, ":", 2)
	if len(parts) == 2 {
		rec := surrealmodels.NewRecordID(parts[0], parts[1])
		return &rec
	}
	rec := surrealmodels.NewRecordID(table, id)
	return &rec
}

// ListPosts returns all community posts, newest first.
func (s *SurrealPostStore) ListPosts(ctx context.Context) ([]domain.CommunityPost, error) {
	posts, err := Query[domain.CommunityPost](ctx, s.db, "SELECT * FROM community_post ORDER BY time DESC", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// NearbyPosts returns geotagged posts inside the bounding box, newest first,
// capped at limit. The box is a coarse prefilter; callers refine it by true
// distance.
func (s *SurrealPostStore) NearbyPosts(ctx context.Context, latMin, latMax, lngMin, lngMax float64, limit int) ([]domain.CommunityPost, error) {
	query := fmt.Sprintf(`
		SELECT * FROM community_post
		WHERE latitude != NONE AND longitude != NONE
		  AND latitude >= $lat_min AND latitude <= $lat_max
		  AND longitude >= $lng_min AND longitude <= $lng_max
		ORDER BY time DESC
		LIMIT %d
	`, limit)
	params := map[string]any{
		"lat_min": latMin,
		"lat_max": latMax,
		"lng_min": lngMin,
		"lng_max": lngMax,
	}

	posts, err := Query[domain.CommunityPost](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby posts: %w", err)
	}
	return posts, nil
}

// GetPost returns one post by ID, or ErrNotFound.
func (s *SurrealPostStore) GetPost(ctx context.Context, id string) (*domain.CommunityPost, error) {
	post, err := QueryOne[domain.CommunityPost](ctx, s.db, "SELECT * FROM $id", map[string]any{
		"id": recordID(id, "community_post"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

// CreatePost stores a new board entry, assigning the server timestamp.
func (s *SurrealPostStore) CreatePost(ctx context.Context, p *domain.CommunityPost) (*domain.CommunityPost, error) {
	p.Time = time.Now().UnixMilli()

	query := `
		CREATE community_post CONTENT {
			userId: $user_id,
			userName: $user_name,
			sport: $sport,
			available: $available,
			total: $total,
			message: $message,
			locality: $locality,
			latitude: $latitude,
			longitude: $longitude,
			time: $time
		}
	`
	params := map[string]any{
		"user_id":   p.UserID,
		"user_name": p.UserName,
		"sport":     p.Sport,
		"available": p.Available,
		"total":     p.Total,
		"message":   p.Message,
		"locality":  p.Locality,
		"latitude":  p.Latitude,
		"longitude": p.Longitude,
		"time":      p.Time,
	}

	saved, err := QueryOne[domain.CommunityPost](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	if saved == nil {
		return nil, fmt.Errorf("post create returned no record")
	}
	return saved, nil
}

// UpdatePost applies an owner-checked partial update and returns the updated
// record.
func (s *SurrealPostStore) UpdatePost(ctx context.Context, id, userID string, fields map[string]any) (*domain.CommunityPost, error) {
	existing, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, domain.ErrForbidden
	}

	set := make([]string, 0, len(fields))
	params := map[string]any{"id": recordID(id, "community_post")}
	for k, v := range fields {
		set = append(set, fmt.Sprintf("%s = $f_%s", k, k))
		params["f_"+k] = v
	}
	if len(set) == 0 {
		return existing, nil
	}

	query := "UPDATE $id SET " + strings.Join(set, ", ") + " RETURN AFTER"
	updated, err := QueryOne[domain.CommunityPost](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	return updated, nil
}

// DeletePost removes a post and its thread messages. Thread messages go
// first.
func (s *SurrealPostStore) DeletePost(ctx context.Context, id, userID string) error {
	existing, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return domain.ErrForbidden
	}

	if err := Execute(ctx, s.db, "DELETE post_message WHERE postId = $post_id", map[string]any{
		"post_id": id,
	}); err != nil {
		return fmt.Errorf("failed to delete thread messages: %w", err)
	}
	if err := Execute(ctx, s.db, "DELETE $id", map[string]any{
		"id": recordID(id, "community_post"),
	}); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// SavePostMessage appends one message to a post's shared thread, assigning
// the server timestamp at persistence time.
func (s *SurrealPostStore) SavePostMessage(ctx context.Context, m *domain.PostMessage) (*domain.PostMessage, error) {
	m.Time = time.Now().UnixMilli()

	query := `
		CREATE post_message CONTENT {
			postId: $post_id,
			fromUserId: $from_user_id,
			fromName: $from_name,
			text: $text,
			time: $time
		}
	`
	params := map[string]any{
		"post_id":      m.PostID,
		"from_user_id": m.FromUserID,
		"from_name":    m.FromName,
		"text":         m.Text,
		"time":         m.Time,
	}

	saved, err := QueryOne[domain.PostMessage](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to save thread message: %w", err)
	}
	if saved == nil {
		return nil, fmt.Errorf("thread message create returned no record")
	}
	return saved, nil
}

// ThreadMessages returns a post's thread history, oldest first.
func (s *SurrealPostStore) ThreadMessages(ctx context.Context, postID string) ([]domain.PostMessage, error) {
	msgs, err := Query[domain.PostMessage](ctx, s.db, "SELECT * FROM post_message WHERE postId = $post_id ORDER BY time ASC", map[string]any{
		"post_id": postID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	return msgs, nil
}
