package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement
// Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RegisterRequest is the DTO for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=120"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the DTO for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateMessageRequest is the DTO for POST /messages.
type CreateMessageRequest struct {
	ToUserID string `json:"toUserId" validate:"required"`
	Text     string `json:"text" validate:"required"`
	ToName   string `json:"toName"`
	FromName string `json:"fromName"`
}

// CreatePostRequest is the DTO for POST /posts.
type CreatePostRequest struct {
	UserName  string   `json:"userName"`
	Sport     string   `json:"sport" validate:"required"`
	Available int      `json:"available" validate:"required,gt=0"`
	Total     int      `json:"total" validate:"required,gt=0,gtefield=Available"`
	Message   string   `json:"message"`
	Locality  string   `json:"locality" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// NearbyPostsRequest is the query DTO for GET /posts/nearby. Lat and Lng are
// pointers so an absent parameter fails validation instead of reading as 0.
type NearbyPostsRequest struct {
	Lat      *float64 `query:"lat" validate:"required,gte=-90,lte=90"`
	Lng      *float64 `query:"lng" validate:"required,gte=-180,lte=180"`
	RadiusKm *float64 `query:"radiusKm" validate:"omitempty,gt=0,lte=200"`
	Limit    *int     `query:"limit" validate:"omitempty,gt=0,lte=200"`
}

// UpdatePostRequest is the DTO for PUT /posts/:id. All fields are optional;
// only those present are applied.
type UpdatePostRequest struct {
	UserName  *string  `json:"userName"`
	Sport     *string  `json:"sport" validate:"omitempty,min=1"`
	Available *int     `json:"available" validate:"omitempty,gt=0"`
	Total     *int     `json:"total" validate:"omitempty,gt=0"`
	Message   *string  `json:"message"`
	Locality  *string  `json:"locality" validate:"omitempty,min=1"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}
