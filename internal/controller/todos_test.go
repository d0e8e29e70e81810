package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoListValidation(t *testing.T) {
	h := NewTodos(nil, nil)
	r := gin.New()
	r.GET("/api/todos", h.List)

	t.Run("unknown priority", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/todos?priority=urgent", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Priority must be one of: low, medium, high")
	})

	t.Run("malformed due date bounds", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/todos?due_date_from=sometime", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid due_date_from")

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/todos?due_date_to=31-12-2026", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid due_date_to")
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Run("RFC 3339", func(t *testing.T) {
		ts, err := parseTimestamp("2026-08-30T12:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, 12, ts.Hour())
	})

	t.Run("bare date", func(t *testing.T) {
		ts, err := parseTimestamp("2026-08-30")
		require.NoError(t, err)
		assert.Equal(t, 2026, ts.Year())
		assert.Equal(t, 30, ts.Day())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseTimestamp("next tuesday")
		assert.Error(t, err)
	})
}
