package controller

import (
	"database/sql"
	"net/http"
	"time"

	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/queue"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Todos handles the todo CRUD surface and publishes activity events.
type Todos struct {
	todos      *repository.TodoRepo
	categories *repository.CategoryRepo
}

func NewTodos(todos *repository.TodoRepo, categories *repository.CategoryRepo) *Todos {
	return &Todos{todos: todos, categories: categories}
}

func (h *Todos) publish(c *gin.Context, action, todoID, userID string) {
	ev := &models.ActivityEvent{
		Action:     action,
		TodoID:     todoID,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
	if err := queue.PublishActivity(c.Request.Context(), ev); err != nil {
		logger.Warn(c.Request.Context(), "Activity publish failed", "error", err, "action", action)
	}
}

// List returns a filtered, paginated todo page. Authenticated callers see
// their own todos by default; an explicit user_id overrides that.
func (h *Todos) List(c *gin.Context) {
	ctx := c.Request.Context()
	limit, offset := pageParams(c)
	f := repository.TodoFilter{
		UserID:     c.Query("user_id"),
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		SortBy:     c.DefaultQuery("sort_by", "created_at"),
		SortOrder:  c.DefaultQuery("sort_order", "DESC"),
		Limit:      limit,
		Offset:     offset,
	}
	if user := middleware.CurrentUser(c); user != nil && f.UserID == "" {
		f.UserID = user.ID
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
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{
		{"due_date_from", &f.DueDateFrom},
		{"due_date_to", &f.DueDateTo},
	} {
		if v := c.Query(q.name); v != "" {
			t, err := parseTimestamp(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + q.name})
				return
			}
			*q.dst = &t
		}
	}

	todos, total, err := h.todos.List(ctx, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch todos"})
		return
	}
	if todos == nil {
		todos = []models.TodoDetail{}
	}
	c.JSON(http.StatusOK, gin.H{
		"todos":      todos,
		"pagination": models.NewPagination(total, limit, offset),
		"filters": gin.H{
			"user_id":       c.Query("user_id"),
			"category_id":   c.Query("category_id"),
			"completed":     c.Query("completed"),
			"priority":      c.Query("priority"),
			"due_date_from": c.Query("due_date_from"),
			"due_date_to":   c.Query("due_date_to"),
			"search":        c.Query("search"),
		},
	})
}

// parseTimestamp accepts RFC 3339 or a bare calendar date.
func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// Create validates and inserts a new todo owned by the caller.
func (h *Todos) Create(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	var body struct {
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		Priority    string     `json:"priority"`
		DueDate     *time.Time `json:"due_date"`
		CategoryID  *string    `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if body.Priority != "" && !models.ValidPriority(body.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Priority must be one of: low, medium, high"})
		return
	}
	// Explicit existence check so the caller gets a clear message instead of
	// a foreign key violation.
	if body.CategoryID != nil {
		exists, err := h.categories.Exists(ctx, *body.CategoryID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create todo"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return
		}
	}

	todo := &models.Todo{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		DueDate:     body.DueDate,
		UserID:      user.ID,
		CategoryID:  body.CategoryID,
	}
	if err := h.todos.Create(ctx, todo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create todo"})
		return
	}
	detail, err := h.todos.GetDetail(ctx, todo.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create todo"})
		return
	}
	h.publish(c, models.ActivityCreated, todo.ID, user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Todo created successfully",
		"todo":    detail,
	})
}

// Get returns one todo with owner and category display fields.
func (h *Todos) Get(c *gin.Context) {
	ctx := c.Request.Context()
	detail, err := h.todos.GetDetail(ctx, c.Param("id"))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch todo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"todo": detail})
}

// Update applies a sparse patch to one of the caller's todos.
func (h *Todos) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	user := middleware.CurrentUser(c)

	owner, err := h.todos.OwnerOf(ctx, id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update todo"})
		return
	}
	if owner != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own todos"})
		return
	}

	var patch models.TodoPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	if patch.Priority.Present {
		if patch.Priority.Value == nil || !models.ValidPriority(*patch.Priority.Value) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Priority must be one of: low, medium, high"})
			return
		}
	}
	if patch.CategoryID.Present && patch.CategoryID.Value != nil {
		exists, err := h.categories.Exists(ctx, *patch.CategoryID.Value)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update todo"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return
		}
	}

	if err := h.todos.Update(ctx, id, patch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update todo"})
		return
	}
	detail, err := h.todos.GetDetail(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update todo"})
		return
	}

	action := models.ActivityUpdated
	if patch.Completed.Present && patch.Completed.Value != nil && *patch.Completed.Value {
		action = models.ActivityCompleted
	}
	h.publish(c, action, id, user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Todo updated successfully",
		"todo":    detail,
	})
}

// Delete removes one of the caller's todos.
func (h *Todos) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	user := middleware.CurrentUser(c)

	owner, err := h.todos.OwnerOf(ctx, id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete todo"})
		return
	}
	if owner != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own todos"})
		return
	}

	todo, err := h.todos.Delete(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete todo"})
		return
	}
	h.publish(c, models.ActivityDeleted, id, user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message":      "Todo deleted successfully",
		"deleted_todo": todo,
	})
}

// Complete marks one of the caller's todos as done.
func (h *Todos) Complete(c *gin.Context) {
	h.setCompleted(c, true, "Todo marked as complete", models.ActivityCompleted)
}

// Incomplete marks one of the caller's todos as pending again.
func (h *Todos) Incomplete(c *gin.Context) {
	h.setCompleted(c, false, "Todo marked as incomplete", models.ActivityUpdated)
}

func (h *Todos) setCompleted(c *gin.Context, completed bool, message, action string) {
	ctx := c.Request.Context()
	id := c.Param("id")
	user := middleware.CurrentUser(c)

	todo, err := h.todos.SetCompleted(ctx, id, user.ID, completed)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found or you do not have permission to update it"})
		return
	}
	if err != nil {
		logger.Error(ctx, "Set completed failed", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update todo"})
		return
	}
	h.publish(c, action, id, user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"todo":    todo,
	})
}
