package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-api/internal/models"
)

func TestUserUpdateValidation(t *testing.T) {
	user := &models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}

	// The rejections under test fire before any repository access.
	h := NewUsers(nil, nil)
	r := gin.New()
	r.PUT("/api/users/:id", asUser(user), h.Update)

	put := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/users/u1", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("empty patch", func(t *testing.T) {
		w := put(`{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "No fields to update")
	})

	t.Run("null username", func(t *testing.T) {
		w := put(`{"username": null}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Username must not be empty")
	})

	t.Run("empty username", func(t *testing.T) {
		w := put(`{"username": ""}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Username must not be empty")
	})

	t.Run("null email", func(t *testing.T) {
		w := put(`{"email": null}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Email must not be empty")
	})

	t.Run("null password", func(t *testing.T) {
		w := put(`{"password": null}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Password must not be empty")
	})

	t.Run("someone else's profile", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/users/u2", strings.NewReader(`{"first_name": "A"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "You can only update your own profile")
	})
}
