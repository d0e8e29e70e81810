package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-api/internal/models"
	"todo-api/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

// asUser plants an authenticated identity the way the auth middleware does.
func asUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) { c.Set("user", u) }
}

func TestCategoryTodos(t *testing.T) {
	user := &models.User{ID: "u1", Username: "alice"}

	newRouter := func(db *sqlx.DB) *gin.Engine {
		h := NewCategories(repository.NewCategoryRepo(db), repository.NewTodoRepo(db))
		r := gin.New()
		r.GET("/api/categories/:id/todos", asUser(user), h.Todos)
		return r
	}

	t.Run("lists the todos filed under the caller's category", func(t *testing.T) {
		db, mock := newMockDB(t)
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT user_id FROM categories").WithArgs("c1").WillReturnRows(
			sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
		mock.ExpectQuery("LEFT JOIN users").WillReturnRows(
			sqlmock.NewRows([]string{
				"id", "title", "description", "completed", "priority", "due_date",
				"user_id", "category_id", "created_at", "updated_at",
				"username", "first_name", "last_name", "category_name", "category_color",
			}).AddRow(
				"t1", "Ship the release", nil, false, "high", nil,
				"u1", "c1", now, now,
				"alice", nil, nil, "Work", "#ff5733"))
		mock.ExpectQuery("COUNT").WillReturnRows(
			sqlmock.NewRows([]string{"count"}).AddRow(1))

		w := httptest.NewRecorder()
		newRouter(db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/c1/todos", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Contains(t, w.Body.String(), "Ship the release")
		assert.Contains(t, w.Body.String(), `"total":1`)
	})

	t.Run("another owner's category reads as missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT user_id FROM categories").WithArgs("c2").WillReturnRows(
			sqlmock.NewRows([]string{"user_id"}).AddRow("u2"))

		w := httptest.NewRecorder()
		newRouter(db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/c2/todos", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Contains(t, w.Body.String(), "Category not found")
	})

	t.Run("unknown category", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT user_id FROM categories").WithArgs("nope").WillReturnRows(
			sqlmock.NewRows([]string{"user_id"}))

		w := httptest.NewRecorder()
		newRouter(db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/nope/todos", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Category not found")
	})

	t.Run("unknown priority filter", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT user_id FROM categories").WithArgs("c1").WillReturnRows(
			sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

		w := httptest.NewRecorder()
		newRouter(db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/c1/todos?priority=urgent", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Priority must be one of: low, medium, high")
	})
}
