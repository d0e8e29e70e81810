package controller

import (
	"database/sql"
	"net/http"
	"strconv"

	"todo-api/internal/config"
	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Users handles the user CRUD surface.
type Users struct {
	users *repository.UserRepo
	todos *repository.TodoRepo
}

func NewUsers(users *repository.UserRepo, todos *repository.TodoRepo) *Users {
	return &Users{users: users, todos: todos}
}

func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns a page of users.
func (h *Users) List(c *gin.Context) {
	ctx := c.Request.Context()
	limit, offset := pageParams(c)
	users, total, err := h.users.List(ctx, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"pagination": models.NewPagination(total, limit, offset),
	})
}

// Get returns one user with their todo summary.
func (h *Users) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	user, err := h.users.GetByID(ctx, id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	counts, err := h.users.TodoCounts(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
		"todo_stats": counts,
	}})
}

// Update applies a sparse patch to the caller's own profile.
func (h *Users) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	current := middleware.CurrentUser(c)
	if id != current.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own profile"})
		return
	}

	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	// Username and email are NOT NULL columns; reject a present-but-null
	// value here rather than letting the update hit the constraint.
	if patch.Username.Present && (patch.Username.Value == nil || *patch.Username.Value == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must not be empty"})
		return
	}
	if patch.Email.Present && (patch.Email.Value == nil || *patch.Email.Value == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email must not be empty"})
		return
	}

	if patch.Username.Present || patch.Email.Present {
		username := current.Username
		if patch.Username.Value != nil {
			username = *patch.Username.Value
		}
		email := current.Email
		if patch.Email.Value != nil {
			email = *patch.Email.Value
		}
		taken, err := h.users.Taken(ctx, username, email, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
			return
		}
	}

	if patch.Password.Present {
		if patch.Password.Value == nil || *patch.Password.Value == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must not be empty"})
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*patch.Password.Value), config.Get().BcryptCost)
		if err != nil {
			logger.Error(ctx, "Password hash failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		patch.Password = models.Set(string(hashed))
	}

	user, err := h.users.Update(ctx, id, patch)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    user,
	})
}

// Delete removes the caller's own account; their todos cascade.
func (h *Users) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	current := middleware.CurrentUser(c)
	if id != current.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own account"})
		return
	}
	username, err := h.users.Delete(ctx, id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "User deleted successfully",
		"deleted_user": username,
	})
}

// Todos returns a filtered page of one user's todos.
func (h *Users) Todos(c *gin.Context) {
	ctx := c.Request.Context()
	limit, offset := pageParams(c)
	f := repository.TodoFilter{
		UserID:     c.Param("id"),
		CategoryID: c.Query("category_id"),
		Limit:      limit,
		Offset:     offset,
	}
	if v := c.Query("completed"); v != "" {
		completed := v == "true"
		f.Completed = &completed
	}
	if v := c.Query("priority"); v != "" {
		if !models.ValidPriority(v) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Priority must be one of: low, medium, high"})
			return
		}
		f.Priority = v
	}
	todos, total, err := h.todos.List(ctx, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user todos"})
		return
	}
	if todos == nil {
		todos = []models.TodoDetail{}
	}
	c.JSON(http.StatusOK, gin.H{
		"todos":      todos,
		"pagination": models.NewPagination(total, limit, offset),
	})
}
