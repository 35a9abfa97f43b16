package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/rally/internal/domain"
)

// UserContextKey is where authenticated handlers find the current user.
const UserContextKey = "user"

// Auth creates a middleware that protects routes requiring a bearer token.
// Requests without a valid token get a 401 JSON body, mirroring what clients
// of the realtime endpoint see as a 4401 close.
func Auth(verifier domain.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}

			user, err := verifier.Verify(c.Request().Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser fetches the authenticated user placed in the context by Auth.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(UserContextKey).(*domain.User)
	return user, ok && user != nil
}
