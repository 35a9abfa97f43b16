package hub

import (
	"sync"
)

// Registry is the shared index from user identity to that user's live
// sessions. It is the only shared mutable state in the hub, so every
// operation takes the one lock; readers get point-in-time copies, never a
// view into the live map.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[*Session]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[*Session]struct{}),
	}
}

// Register adds a session under the given user, creating the user's entry if
// this is their first connection.
func (r *Registry) Register(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.users[userID]
	if !ok {
		sessions = make(map[*Session]struct{})
		r.users[userID] = sessions
	}
	sessions[s] = struct{}{}
}

// Unregister removes a session from the user's set, dropping the entry when
// it becomes empty. Removing a session that is not present is a no-op.
func (r *Registry) Unregister(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.users[userID]
	if !ok {
		return
	}
	delete(sessions, s)
	if len(sessions) == 0 {
		delete(r.users, userID)
	}
}

// Lookup returns a snapshot of the user's live sessions, or an empty slice
// when the user has none.
func (r *Registry) Lookup(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.users[userID]))
	for s := range r.users[userID] {
		sessions = append(sessions, s)
	}
	return sessions
}

// All returns a snapshot of every live session across all users.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*Session
	for _, set := range r.users {
		for s := range set {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

// UserCount returns the number of users with at least one live session.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
