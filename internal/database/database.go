package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/rally/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// Connect opens the SurrealDB connection the stores share: dial the
// endpoint, sign in with the root credentials, and pin the configured
// namespace and database.
func Connect(ctx context.Context, cfg *config.Config) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("surrealdb dial: %w", err)
	}

	if _, err := db.SignIn(ctx, &surrealdb.Auth{
		Username: cfg.DBUser,
		Password: cfg.DBPass,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("surrealdb sign in: %w", err)
	}

	if err := db.Use(ctx, cfg.DBNs, cfg.DBDb); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("surrealdb use %s/%s: %w", cfg.DBNs, cfg.DBDb, err)
	}

	slog.Info("Connected to SurrealDB", "ns", cfg.DBNs, "db", cfg.DBDb)
	return db, nil
}
