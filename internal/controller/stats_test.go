package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrendsValidation(t *testing.T) {
	h := NewStats(nil)
	r := gin.New()
	r.GET("/api/stats/trends", h.Trends)

	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"unknown period", "?period=1y", "Invalid period. Must be one of: 7d, 30d, 90d"},
		{"unknown granularity", "?period=7d&granularity=hourly", "Invalid granularity. Must be one of: daily, weekly"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats/trends"+tc.query, nil))
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.want, body["error"])
		})
	}
}

func TestTodoStatsDateValidation(t *testing.T) {
	h := NewStats(nil)
	r := gin.New()
	r.GET("/api/stats/todos", h.Todos)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats/todos?date_from=not-a-date", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid date_from")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats/todos?date_to=2026/01/01", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid date_to")
}
