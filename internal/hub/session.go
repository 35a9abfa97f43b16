package hub

import (
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// sendBufferSize bounds each session's outbound queue. A full buffer means
// the client is lagging; writes to it are dropped rather than blocking the
// sender.
const sendBufferSize = 256

// Session is one authenticated live connection: the transport, the identity
// it authenticated as, and the outbound queue its write pump drains.
type Session struct {
	// ID uniquely identifies this connection; a user may hold several.
	ID string
	// UserID is the identity the handshake established.
	UserID string

	conn *websocket.Conn
	send chan []byte

	// mu guards send against concurrent close; closeOnce makes the close
	// transition idempotent under duplicate close signals.
	mu        sync.RWMutex
	closeOnce sync.Once
}

func newSession(userID string, conn *websocket.Conn) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Send queues a message for delivery and reports whether it was accepted.
// It never blocks: a closed session or a full buffer rejects the write, and
// that failure stays local to this session.
func (s *Session) Send(msg []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.send == nil {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// outbound returns the send channel for the write pump to range over, or nil
// if the session already closed.
func (s *Session) outbound() <-chan []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.send
}

// close shuts the outbound queue. Safe to call more than once.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.send != nil {
		close(s.send)
		s.send = nil
	}
}
