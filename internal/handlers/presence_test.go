package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTracker struct {
	users []string
}

func (s *stubTracker) OnlineUsers() []string { return s.users }

func TestPresenceHandler_Get(t *testing.T) {
	h := NewPresenceHandler(&stubTracker{users: []string{"alice", "bob"}})

	c, rec := newTestContext(t, http.MethodGet, "/presence", "", testUser("alice"))

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":["alice","bob"]}`, rec.Body.String())
}

func TestPresenceHandler_GetEmpty(t *testing.T) {
	h := NewPresenceHandler(&stubTracker{users: []string{}})

	c, rec := newTestContext(t, http.MethodGet, "/presence", "", testUser("alice"))

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())
}
