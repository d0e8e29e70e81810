package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-api/internal/simulation"
)

// Protected endpoints must answer 401 without a token, never a routing 404.
func TestProtectedRoutesRegistered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	r := Router(sqlx.NewDb(db, "postgres"), simulation.NewService())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/categories"},
		{http.MethodGet, "/api/categories/c1"},
		{http.MethodGet, "/api/categories/c1/todos"},
		{http.MethodPost, "/api/todos"},
		{http.MethodGet, "/api/stats/productivity"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "Access token required")
		})
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
