package main

import (
	"github.com/nfrund/rally/internal/config"
	"github.com/nfrund/rally/internal/logging"
	"github.com/nfrund/rally/internal/server"
)

func main() {
	logging.New()
	cfg := config.New()

	s := server.New(cfg)
	s.RegisterRoutes()
	s.Start(cfg.HTTPAddr)
}
