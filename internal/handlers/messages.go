package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/rally/internal/domain"
	"github.com/nfrund/rally/internal/middleware"
)

// MessageStore is the persistence the messages endpoints need.
type MessageStore interface {
	SaveMessage(ctx context.Context, m *domain.Message) (*domain.Message, error)
	Conversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
}

// MessagePublisher pushes a persisted message to the recipient's live
// sessions. Satisfied by the hub's publisher.
type MessagePublisher interface {
	MessageNew(userID string, m *domain.Message)
}

// MessagesHandler serves direct-message history and REST-originated sends.
type MessagesHandler struct {
	store     MessageStore
	publisher MessagePublisher
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(store MessageStore, publisher MessagePublisher) *MessagesHandler {
	return &MessagesHandler{store: store, publisher: publisher}
}

// List handles GET /messages?withUser=<id>.
func (h *MessagesHandler) List(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	otherID := c.QueryParam("withUser")
	if otherID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "withUser_required"})
	}

	msgs, err := h.store.Conversation(c.Request().Context(), user.Key(), otherID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query_failed"})
	}

	wire := make([]domain.WireMessage, 0, len(msgs))
	for i := range msgs {
		wire = append(wire, msgs[i].Wire())
	}
	return c.JSON(http.StatusOK, wire)
}

// Create handles POST /messages: persist first, then push to the
// recipient's live sessions. Delivery is best-effort; the 201 reflects the
// write, not the push.
func (h *MessagesHandler) Create(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}

	saved, err := h.store.SaveMessage(c.Request().Context(), &domain.Message{
		FromUserID: user.Key(),
		ToUserID:   req.ToUserID,
		FromName:   req.FromName,
		ToName:     req.ToName,
		Text:       req.Text,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "create_failed"})
	}

	h.publisher.MessageNew(req.ToUserID, saved)
	return c.JSON(http.StatusCreated, saved.Wire())
}
