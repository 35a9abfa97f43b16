package hub

// Inbound event types (client → hub).
const (
	TypeMessageSend     = "message_send"
	TypePostMessageSend = "post_message_send"
)

// Outbound event types (hub → client). This set is closed: clients key their
// dispatch on it.
const (
	TypeMessageNew     = "message_new"
	TypePostMessageNew = "post_message_new"
	TypePostCreated    = "post_created"
	TypePostUpdated    = "post_updated"
	TypePostDeleted    = "post_deleted"
)

// inboundEvent is the superset of fields a client may send. The router
// decides which are required per type; the optional client-supplied time is
// parsed but ignored, since the store assigns the authoritative timestamp at
// persistence.
type inboundEvent struct {
	Type     string `json:"type"`
	ToUserID string `json:"toUserId"`
	ToName   string `json:"toName"`
	FromName string `json:"fromName"`
	Text     string `json:"text"`
	Time     int64  `json:"time"`
	PostID   string `json:"postId"`
}

// Envelope is the outbound frame written to clients. Data holds the
// persisted record in its wire shape.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
