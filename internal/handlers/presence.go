package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PresenceTracker reports which users currently hold live sessions.
type PresenceTracker interface {
	OnlineUsers() []string
}

// PresenceHandler exposes the online-user list.
type PresenceHandler struct {
	tracker PresenceTracker
}

// NewPresenceHandler creates a new PresenceHandler.
func NewPresenceHandler(tracker PresenceTracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// Get handles GET /presence.
func (h *PresenceHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"users": h.tracker.OnlineUsers()})
}
