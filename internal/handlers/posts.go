package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/rally/internal/domain"
	"github.com/nfrund/rally/internal/middleware"
)

// kmPerDegreeLat approximates one degree of latitude. The bounding box it
// yields overshoots; the haversine pass below trims it to the true radius.
const kmPerDegreeLat = 111.32

const (
	defaultNearbyRadiusKm = 10.0
	defaultNearbyLimit    = 50
	maxNearbyCandidates   = 500
)

// PostStore is the persistence the board endpoints need.
type PostStore interface {
	ListPosts(ctx context.Context) ([]domain.CommunityPost, error)
	NearbyPosts(ctx context.Context, latMin, latMax, lngMin, lngMax float64, limit int) ([]domain.CommunityPost, error)
	GetPost(ctx context.Context, id string) (*domain.CommunityPost, error)
	CreatePost(ctx context.Context, p *domain.CommunityPost) (*domain.CommunityPost, error)
	UpdatePost(ctx context.Context, id, userID string, fields map[string]any) (*domain.CommunityPost, error)
	DeletePost(ctx context.Context, id, userID string) error
	ThreadMessages(ctx context.Context, postID string) ([]domain.PostMessage, error)
}

// BoardPublisher broadcasts board changes to every live session. Satisfied
// by the hub's publisher.
type BoardPublisher interface {
	PostCreated(p *domain.CommunityPost)
	PostUpdated(p *domain.CommunityPost)
	PostDeleted(id string)
}

// PostsHandler serves the community board: posts plus their shared message
// threads.
type PostsHandler struct {
	store     PostStore
	publisher BoardPublisher
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(store PostStore, publisher BoardPublisher) *PostsHandler {
	return &PostsHandler{store: store, publisher: publisher}
}

// List handles GET /posts.
func (h *PostsHandler) List(c echo.Context) error {
	posts, err := h.store.ListPosts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query_failed"})
	}

	wire := make([]domain.WireCommunityPost, 0, len(posts))
	for i := range posts {
		wire = append(wire, posts[i].Wire())
	}
	return c.JSON(http.StatusOK, wire)
}

// nearbyPost is a board post annotated with its distance from the query
// point.
type nearbyPost struct {
	domain.WireCommunityPost
	DistanceKm float64 `json:"distanceKm"`
}

// Nearby handles GET /posts/nearby?lat=&lng=&radiusKm=&limit=. The store does
// a bounding-box prefilter; the results are ranked by haversine distance,
// with submission recency breaking ties.
func (h *PostsHandler) Nearby(c echo.Context) error {
	var req NearbyPostsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_query"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_query"})
	}

	lat, lng := *req.Lat, *req.Lng
	radius := defaultNearbyRadiusKm
	if req.RadiusKm != nil {
		radius = *req.RadiusKm
	}
	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	latDelta := radius / kmPerDegreeLat
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat == 0 {
		// Degenerate at the poles; fall back to the latitude scale.
		cosLat = 1
	}
	lngDelta := radius / (kmPerDegreeLat * cosLat)

	candidateLimit := defaultNearbyLimit
	if limit > 0 {
		candidateLimit = limit
	}
	candidateLimit *= 5
	if candidateLimit > maxNearbyCandidates {
		candidateLimit = maxNearbyCandidates
	}

	posts, err := h.store.NearbyPosts(c.Request().Context(),
		lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta, candidateLimit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query_failed"})
	}

	results := make([]nearbyPost, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		d := domain.DistanceKm(lat, lng, *p.Latitude, *p.Longitude)
		if d > radius {
			continue
		}
		results = append(results, nearbyPost{WireCommunityPost: p.Wire(), DistanceKm: d})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Time > results[j].Time
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return c.JSON(http.StatusOK, results)
}

// Create handles POST /posts: persist, then broadcast post_created.
func (h *PostsHandler) Create(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	var req CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}

	saved, err := h.store.CreatePost(c.Request().Context(), &domain.CommunityPost{
		UserID:    user.Key(),
		UserName:  req.UserName,
		Sport:     req.Sport,
		Available: req.Available,
		Total:     req.Total,
		Message:   req.Message,
		Locality:  req.Locality,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "create_failed"})
	}

	h.publisher.PostCreated(saved)
	return c.JSON(http.StatusCreated, saved.Wire())
}

// Update handles PUT /posts/:id for the post's owner.
func (h *PostsHandler) Update(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	var req UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_body"})
	}

	fields := make(map[string]any)
	if req.UserName != nil {
		fields["userName"] = *req.UserName
	}
	if req.Sport != nil {
		fields["sport"] = *req.Sport
	}
	if req.Available != nil {
		fields["available"] = *req.Available
	}
	if req.Total != nil {
		fields["total"] = *req.Total
	}
	if req.Message != nil {
		fields["message"] = *req.Message
	}
	if req.Locality != nil {
		fields["locality"] = *req.Locality
	}
	if req.Latitude != nil {
		fields["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		fields["longitude"] = *req.Longitude
	}

	updated, err := h.store.UpdatePost(c.Request().Context(), c.Param("id"), user.Key(), fields)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
		// Non-owners get the same 404 as a missing post, revealing nothing.
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "update_failed"})
	}

	h.publisher.PostUpdated(updated)
	return c.JSON(http.StatusOK, updated.Wire())
}

// Delete handles DELETE /posts/:id for the post's owner.
func (h *PostsHandler) Delete(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	id := c.Param("id")
	err := h.store.DeletePost(c.Request().Context(), id, user.Key())
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "delete_failed"})
	}

	h.publisher.PostDeleted(id)
	return c.NoContent(http.StatusNoContent)
}

// Thread handles GET /posts/:id/messages.
func (h *PostsHandler) Thread(c echo.Context) error {
	msgs, err := h.store.ThreadMessages(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query_failed"})
	}

	wire := make([]domain.WirePostMessage, 0, len(msgs))
	for i := range msgs {
		wire = append(wire, msgs[i].Wire())
	}
	return c.JSON(http.StatusOK, wire)
}
