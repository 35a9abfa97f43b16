package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// User represents the core user model in the application domain.
type User struct {
	ID       *surrealmodels.RecordID `json:"id,omitempty"`
	Email    string                  `json:"email"`
	Password string                  `json:"password,omitempty"`
	Name     *string                 `json:"name,omitempty"`
}

// Key returns the stable identifier used to address this user in the
// connection registry and in stored message records.
func (u *User) Key() string {
	if u.ID != nil {
		return u.ID.String()
	}
	return u.Email
}

// TokenVerifier turns a bearer token into the user it identifies, or fails
// with ErrInvalidCredentials. It is the contract the realtime hub and the
// REST middleware share for authenticating callers.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// UserRepository defines the contract for user data storage operations.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserRepository interface {
	SignUp(ctx context.Context, user *User, password string) (string, error)
	SignIn(ctx context.Context, user *User, password string) (string, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	TokenVerifier
}
