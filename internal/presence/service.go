package presence

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/nfrund/rally/internal/hub"
	"github.com/nfrund/rally/internal/pubsub"
)

// Service tracks which users currently hold live hub sessions. It consumes
// the hub's lifecycle topics from the bus rather than touching the
// connection registry, so it stays decoupled from the hub's locking.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]map[string]struct{} // userID -> set of sessionIDs
	logger   *slog.Logger
}

// NewService creates the presence service and subscribes it to the hub's
// lifecycle topics.
func NewService(ctx context.Context, subscriber pubsub.Subscriber) (*Service, error) {
	svc := &Service{
		sessions: make(map[string]map[string]struct{}),
		logger:   slog.Default().With("service", "presence"),
	}

	if err := subscriber.Subscribe(ctx, hub.TopicClientConnected, svc.handleConnected); err != nil {
		return nil, err
	}
	if err := subscriber.Subscribe(ctx, hub.TopicClientDisconnected, svc.handleDisconnected); err != nil {
		return nil, err
	}

	return svc, nil
}

func (s *Service) handleConnected(ctx context.Context, msg pubsub.Message) error {
	var ev hub.LifecycleEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		s.logger.Error("Failed to unmarshal connected event", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[ev.UserID] == nil {
		s.sessions[ev.UserID] = make(map[string]struct{})
		s.logger.Info("User came online", "user_id", ev.UserID)
	}
	s.sessions[ev.UserID][ev.SessionID] = struct{}{}
	return nil
}

func (s *Service) handleDisconnected(ctx context.Context, msg pubsub.Message) error {
	var ev hub.LifecycleEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		s.logger.Error("Failed to unmarshal disconnected event", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sessions[ev.UserID]
	if !ok {
		return nil
	}
	delete(set, ev.SessionID)
	if len(set) == 0 {
		delete(s.sessions, ev.UserID)
		s.logger.Info("User went offline", "user_id", ev.UserID)
	}
	return nil
}

// OnlineUsers returns the users with at least one live session, sorted for
// stable output.
func (s *Service) OnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.sessions))
	for userID := range s.sessions {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// IsOnline reports whether the user has at least one live session.
func (s *Service) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[userID]) > 0
}
