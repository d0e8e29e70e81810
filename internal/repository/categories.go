package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// CategoryRepo issues category SQL against the pool. Categories are scoped
// to their owning user.
type CategoryRepo struct {
	db *sqlx.DB
}

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// List returns the owner's categories with todo counts plus the total.
func (r *CategoryRepo) List(ctx context.Context, userID string, limit, offset int) ([]models.CategoryWithCount, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var categories []models.CategoryWithCount
	err := r.db.SelectContext(ctx, &categories, `
		SELECT c.id, c.name, c.description, c.color, c.user_id, c.created_at, c.updated_at,
		       COUNT(t.id) AS todo_count
		FROM categories c
		LEFT JOIN todos t ON c.id = t.category_id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		logger.Error(ctx, "List categories failed", "error", err)
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM categories WHERE user_id = $1`, userID); err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

// CategoryCounts is a category with its completed/pending split.
type CategoryCounts struct {
	models.Category
	TodoCount      int `json:"todo_count" db:"todo_count"`
	CompletedTodos int `json:"completed_todos" db:"completed_todos"`
	PendingTodos   int `json:"pending_todos" db:"pending_todos"`
}

// GetByID returns a category with its counts, or sql.ErrNoRows.
func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*CategoryCounts, error) {
	var c CategoryCounts
	err := r.db.GetContext(ctx, &c, `
		SELECT c.id, c.name, c.description, c.color, c.user_id, c.created_at, c.updated_at,
		       COUNT(t.id) AS todo_count,
		       COUNT(t.id) FILTER (WHERE t.completed = true) AS completed_todos,
		       COUNT(t.id) FILTER (WHERE t.completed = false) AS pending_todos
		FROM categories c
		LEFT JOIN todos t ON c.id = t.category_id
		WHERE c.id = $1
		GROUP BY c.id`, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists reports whether the category id is known.
func (r *CategoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM categories WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// OwnerOf returns the user_id of the category, or sql.ErrNoRows.
func (r *CategoryRepo) OwnerOf(ctx context.Context, id string) (string, error) {
	var owner string
	if err := r.db.GetContext(ctx, &owner, `SELECT user_id FROM categories WHERE id = $1`, id); err != nil {
		return "", err
	}
	return owner, nil
}

// NameTaken reports whether the owner already has a category with this name,
// excluding excludeID when non-empty.
func (r *CategoryRepo) NameTaken(ctx context.Context, userID, name, excludeID string) (bool, error) {
	b := psql.Select("1").From("categories").
		Where(sq.Eq{"user_id": userID, "name": name})
	if excludeID != "" {
		b = b.Where(sq.NotEq{"id": excludeID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = r.db.GetContext(ctx, &one, query, args...)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts a new category. Missing color defaults to #007bff.
func (r *CategoryRepo) Create(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Color == "" {
		c.Color = "#007bff"
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, color, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Description, c.Color, c.UserID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Create category failed", "error", err)
	}
	return err
}

// Update applies a sparse patch and returns the updated row.
func (r *CategoryRepo) Update(ctx context.Context, id string, p models.CategoryPatch) (*models.Category, error) {
	b := psql.Update("categories")
	if p.Name.Present {
		b = b.Set("name", optValue(p.Name))
	}
	if p.Description.Present {
		b = b.Set("description", optValue(p.Description))
	}
	if p.Color.Present {
		b = b.Set("color", optValue(p.Color))
	}
	b = b.Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, description, color, user_id, created_at, updated_at")
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var c models.Category
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if err != sql.ErrNoRows {
			logger.Error(ctx, "Update category failed", "error", err, "id", id)
		}
		return nil, err
	}
	return &c, nil
}

// Delete removes a category. Referencing todos get category_id set to NULL
// by the foreign key, not deleted.
func (r *CategoryRepo) Delete(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	err := r.db.GetContext(ctx, &c, `DELETE FROM categories WHERE id = $1 RETURNING *`, id)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error(ctx, "Delete category failed", "error", err, "id", id)
		}
		return nil, err
	}
	return &c, nil
}
