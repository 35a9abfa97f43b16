package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/rally/internal/config"
	"github.com/nfrund/rally/internal/database"
	"github.com/nfrund/rally/internal/handlers"
	"github.com/nfrund/rally/internal/hub"
	"github.com/nfrund/rally/internal/presence"
	"github.com/nfrund/rally/internal/pubsub"
	"github.com/surrealdb/surrealdb.go"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E   *echo.Echo
	DB  *surrealdb.DB
	Cfg *config.Config

	bus       *pubsub.Bus
	userStore *database.SurrealUserStore
	messages  *database.SurrealMessageStore
	posts     *database.SurrealPostStore
	registry  *hub.Registry
	publisher *hub.Publisher
	bridge    *hub.Bridge
	presence  *presence.Service
}

// New creates a new Server instance with all dependencies wired.
func New(cfg *config.Config) *Server {
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	userStore := database.NewSurrealUserStore(db, cfg.DBNs, cfg.DBDb)
	messages := database.NewSurrealMessageStore(db)
	posts := database.NewSurrealPostStore(db)

	bus := pubsub.NewBus()

	registry := hub.NewRegistry()
	publisher := hub.NewPublisher(registry)
	router := hub.NewRouter(messages, posts, publisher)
	bridge := hub.NewBridge(userStore, registry, router, bus)

	presenceSvc, err := presence.NewService(ctx, bus)
	if err != nil {
		slog.Error("Failed to start presence service", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Validator = handlers.NewValidator()

	return &Server{
		E:         e,
		DB:        db,
		Cfg:       cfg,
		bus:       bus,
		userStore: userStore,
		messages:  messages,
		posts:     posts,
		registry:  registry,
		publisher: publisher,
		bridge:    bridge,
		presence:  presenceSvc,
	}
}

// Publisher exposes the hub's delivery API, useful for tests and tooling.
func (s *Server) Publisher() *hub.Publisher {
	return s.publisher
}
