package hub

// Lifecycle topics published on the in-process bus. The presence service
// subscribes to these; the hub itself never reads them back.
const (
	// TopicClientConnected fires after a session passes the handshake and is
	// registered.
	TopicClientConnected = "hub.client.connected"
	// TopicClientDisconnected fires once per session when it closes.
	TopicClientDisconnected = "hub.client.disconnected"
)

// LifecycleEvent is the payload carried on the lifecycle topics.
type LifecycleEvent struct {
	UserID    string `json:"userID"`
	SessionID string `json:"sessionID"`
}
