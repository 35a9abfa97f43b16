package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/rally/internal/domain"
)

// AuthHandler issues bearer tokens. Everything downstream (the REST
// middleware and the hub handshake) verifies against the same store.
type AuthHandler struct {
	users domain.UserRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users domain.UserRepository) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}

	user := &domain.User{Email: req.Email}
	if req.Name != "" {
		user.Name = &req.Name
	}

	token, err := h.users.SignUp(c.Request().Context(), user, req.Password)
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "email_taken"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "register_failed"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"token": token})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}

	token, err := h.users.SignIn(c.Request().Context(), &domain.User{Email: req.Email}, req.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
