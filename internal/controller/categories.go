package controller

import (
	"database/sql"
	"net/http"

	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/repository"

	"github.com/gin-gonic/gin"
)

// Categories handles the per-user category CRUD surface.
type Categories struct {
	categories *repository.CategoryRepo
	todos      *repository.TodoRepo
}

func NewCategories(categories *repository.CategoryRepo, todos *repository.TodoRepo) *Categories {
	return &Categories{categories: categories, todos: todos}
}

// List returns the caller's categories with todo counts.
func (h *Categories) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	limit, offset := pageParams(c)
	categories, total, err := h.categories.List(ctx, user.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	if categories == nil {
		categories = []models.CategoryWithCount{}
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"pagination": models.NewPagination(total, limit, offset),
	})
}

// Create adds a category owned by the caller.
func (h *Categories) Create(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	var body struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Color       string  `json:"color"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}

	taken, err := h.categories.NameTaken(ctx, user.ID, body.Name, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Category with this name already exists"})
		return
	}

	category := &models.Category{
		Name:        body.Name,
		Description: body.Description,
		Color:       body.Color,
		UserID:      user.ID,
	}
	if err := h.categories.Create(ctx, category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Category created successfully",
		"category": category,
	})
}

// Get returns one of the caller's categories with its counts.
func (h *Categories) Get(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	category, err := h.categories.GetByID(ctx, c.Param("id"))
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
		return
	}
	// Other owners' categories are invisible, not forbidden.
	if category.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// Todos lists the todos filed under one of the caller's categories.
func (h *Categories) Todos(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	user := middleware.CurrentUser(c)

	owner, err := h.categories.OwnerOf(ctx, id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category todos"})
		return
	}
	// Other owners' categories are invisible, not forbidden.
	if owner != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	limit, offset := pageParams(c)
	f := repository.TodoFilter{
		UserID:     user.ID,
		CategoryID: id,
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
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category todos"})
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

// Update applies a sparse patch to one of the caller's categories.
func (h *Categories) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	user := middleware.CurrentUser(c)

	owner, err := h.categories.OwnerOf(ctx, id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}
	if owner != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own categories"})
		return
	}

	var patch models.CategoryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	if patch.Name.Present {
		if patch.Name.Value == nil || *patch.Name.Value == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category name must not be empty"})
			return
		}
		taken, err := h.categories.NameTaken(ctx, user.ID, *patch.Name.Value, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Category with this name already exists"})
			return
		}
	}

	category, err := h.categories.Update(ctx, id, patch)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Category updated successfully",
		"category": category,
	})
}

// Delete removes one of the caller's categories. Referencing todos keep
// living with a null category_id.
func (h *Categories) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	user := middleware.CurrentUser(c)

	owner, err := h.categories.OwnerOf(ctx, id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	if owner != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own categories"})
		return
	}

	category, err := h.categories.Delete(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          "Category deleted successfully",
		"deleted_category": category,
	})
}
