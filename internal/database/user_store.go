package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nfrund/rally/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// SurrealUserStore encapsulates user storage and credential verification
// using SurrealDB's record-access flow. The tokens it issues are the bearer
// tokens the REST middleware and the realtime hub verify.
type SurrealUserStore struct {
	db     *surrealdb.DB
	ns     string
	dbName string
}

var _ domain.UserRepository = (*SurrealUserStore)(nil)

// NewSurrealUserStore creates a new SurrealUserStore.
func NewSurrealUserStore(db *surrealdb.DB, ns, dbName string) *SurrealUserStore {
	return &SurrealUserStore{db: db, ns: ns, dbName: dbName}
}

// FindUserByEmail queries for a single user by their email address.
func (s *SurrealUserStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := s.db.Use(ctx, s.ns, s.dbName); err != nil {
		return nil, fmt.Errorf("failed to set database scope: %w", err)
	}

	query := "SELECT * FROM user WHERE email = $email"
	params := map[string]any{"email": email}

	user, err := QueryOne[domain.User](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return user, nil
}

// SignUp registers a new user through the "account" record access and
// returns the issued bearer token.
func (s *SurrealUserStore) SignUp(ctx context.Context, user *domain.User, password string) (string, error) {
	token, err := s.db.SignUp(ctx, map[string]interface{}{
		"ns":       s.ns,
		"db":       s.dbName,
		"ac":       "account",
		"email":    user.Email,
		"name":     user.Name,
		"password": password,
	})

	if err != nil && strings.Contains(err.Error(), "already exists") {
		return "", domain.ErrUserAlreadyExists
	}
	if err != nil {
		return "", fmt.Errorf("sign up failed: %w", err)
	}

	slog.Info("Successfully signed up user", "email", user.Email)
	return token, nil
}

// SignIn authenticates an existing user and returns a fresh bearer token.
func (s *SurrealUserStore) SignIn(ctx context.Context, user *domain.User, password string) (string, error) {
	token, err := s.db.SignIn(ctx, map[string]interface{}{
		"ns":       s.ns,
		"db":       s.dbName,
		"ac":       "account",
		"email":    user.Email,
		"password": password,
	})
	if err != nil {
		return "", domain.ErrInvalidCredentials
	}

	slog.Info("Successfully signed in user", "email", user.Email)
	return token, nil
}

// Verify validates a bearer token and returns the user it identifies. It
// backs both the REST middleware and the hub handshake.
//
// Authenticate applies to the shared connection, so concurrent Verify calls
// can interleave another caller's auth context with the $auth read. Switch
// to a per-call session when the driver exposes one.
func (s *SurrealUserStore) Verify(ctx context.Context, token string) (*domain.User, error) {
	// Authenticate sets the auth context for subsequent queries on this
	// connection; an error means the token is invalid or expired.
	if err := s.db.Authenticate(ctx, token); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	users, err := Query[domain.User](ctx, s.db, "SELECT * FROM $auth", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}
	if len(users) == 0 || users[0].ID == nil {
		return nil, domain.ErrInvalidCredentials
	}

	user := &users[0]
	user.Password = ""
	return user, nil
}
