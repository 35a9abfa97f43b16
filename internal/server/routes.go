package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/rally/internal/handlers"
	"github.com/nfrund/rally/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	authHandler := handlers.NewAuthHandler(s.userStore)
	messagesHandler := handlers.NewMessagesHandler(s.messages, s.publisher)
	postsHandler := handlers.NewPostsHandler(s.posts, s.publisher)
	presenceHandler := handlers.NewPresenceHandler(s.presence)

	auth := middleware.Auth(s.userStore)

	s.E.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	s.E.POST("/auth/register", authHandler.Register)
	s.E.POST("/auth/login", authHandler.Login)

	// The hub authenticates inside its own handshake; the bearer token may
	// also arrive as a query parameter there.
	s.E.GET("/ws", s.bridge.Handler())

	s.E.GET("/messages", messagesHandler.List, auth)
	s.E.POST("/messages", messagesHandler.Create, auth)

	s.E.GET("/posts", postsHandler.List, auth)
	s.E.GET("/posts/nearby", postsHandler.Nearby, auth)
	s.E.POST("/posts", postsHandler.Create, auth)
	s.E.PUT("/posts/:id", postsHandler.Update, auth)
	s.E.DELETE("/posts/:id", postsHandler.Delete, auth)
	s.E.GET("/posts/:id/messages", postsHandler.Thread, auth)

	s.E.GET("/presence", presenceHandler.Get, auth)
}
