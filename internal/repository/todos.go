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

const todoDetailColumns = `t.id, t.title, t.description, t.completed, t.priority, t.due_date,
	t.user_id, t.category_id, t.created_at, t.updated_at,
	u.username AS username, u.first_name AS first_name, u.last_name AS last_name,
	c.name AS category_name, c.color AS category_color`

// TodoFilter captures the query-string filters of GET /api/todos.
type TodoFilter struct {
	UserID      string
	CategoryID  string
	Completed   *bool
	Priority    string
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	Search      string
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}

var todoSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"due_date":   true,
	"priority":   true,
}

// TodoRepo issues todo SQL against the pool.
type TodoRepo struct {
	db *sqlx.DB
}

func NewTodoRepo(db *sqlx.DB) *TodoRepo {
	return &TodoRepo{db: db}
}

func (r *TodoRepo) conditions(f TodoFilter) []sq.Sqlizer {
	var conds []sq.Sqlizer
	if f.UserID != "" {
		conds = append(conds, sq.Eq{"t.user_id": f.UserID})
	}
	if f.CategoryID != "" {
		conds = append(conds, sq.Eq{"t.category_id": f.CategoryID})
	}
	if f.Completed != nil {
		conds = append(conds, sq.Eq{"t.completed": *f.Completed})
	}
	if f.Priority != "" {
		conds = append(conds, sq.Eq{"t.priority": f.Priority})
	}
	if f.DueDateFrom != nil {
		conds = append(conds, sq.GtOrEq{"t.due_date": *f.DueDateFrom})
	}
	if f.DueDateTo != nil {
		conds = append(conds, sq.LtOrEq{"t.due_date": *f.DueDateTo})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		conds = append(conds, sq.Or{
			sq.ILike{"t.title": pattern},
			sq.ILike{"t.description": pattern},
		})
	}
	return conds
}

// List returns the filtered todo page plus the unpaginated total.
func (r *TodoRepo) List(ctx context.Context, f TodoFilter) ([]models.TodoDetail, int, error) {
	sortField := f.SortBy
	if !todoSortFields[sortField] {
		sortField = "created_at"
	}
	sortDir := "DESC"
	if f.SortOrder == "ASC" {
		sortDir = "ASC"
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}

	b := psql.Select(todoDetailColumns).
		From("todos t").
		LeftJoin("users u ON t.user_id = u.id").
		LeftJoin("categories c ON t.category_id = c.id").
		OrderBy("t." + sortField + " " + sortDir).
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	count := psql.Select("COUNT(*)").From("todos t")
	for _, c := range r.conditions(f) {
		b = b.Where(c)
		count = count.Where(c)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var todos []models.TodoDetail
	if err := r.db.SelectContext(ctx, &todos, query, args...); err != nil {
		logger.Error(ctx, "List todos failed", "error", err)
		return nil, 0, err
	}

	query, args, err = count.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		logger.Error(ctx, "Count todos failed", "error", err)
		return nil, 0, err
	}
	return todos, total, nil
}

// GetDetail returns a todo joined with owner and category fields, or sql.ErrNoRows.
func (r *TodoRepo) GetDetail(ctx context.Context, id string) (*models.TodoDetail, error) {
	var t models.TodoDetail
	err := r.db.GetContext(ctx, &t, `
		SELECT `+todoDetailColumns+`
		FROM todos t
		LEFT JOIN users u ON t.user_id = u.id
		LEFT JOIN categories c ON t.category_id = c.id
		WHERE t.id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new todo. Missing priority defaults to medium.
func (r *TodoRepo) Create(ctx context.Context, todo *models.Todo) error {
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	if todo.Priority == "" {
		todo.Priority = models.PriorityMedium
	}
	now := time.Now()
	todo.CreatedAt = now
	todo.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (id, title, description, completed, priority, due_date, user_id, category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		todo.ID, todo.Title, todo.Description, todo.Completed, todo.Priority,
		todo.DueDate, todo.UserID, todo.CategoryID, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Create todo failed", "error", err)
	}
	return err
}

// OwnerOf returns the user_id of the todo, or sql.ErrNoRows.
func (r *TodoRepo) OwnerOf(ctx context.Context, id string) (string, error) {
	var owner string
	if err := r.db.GetContext(ctx, &owner, `SELECT user_id FROM todos WHERE id = $1`, id); err != nil {
		return "", err
	}
	return owner, nil
}

// buildUpdate turns the present patch fields into an UPDATE statement.
// Returns false when the patch is empty.
func (r *TodoRepo) buildUpdate(id string, p models.TodoPatch) (string, []interface{}, bool, error) {
	if p.Empty() {
		return "", nil, false, nil
	}
	b := psql.Update("todos")
	if p.Title.Present {
		b = b.Set("title", optValue(p.Title))
	}
	if p.Description.Present {
		b = b.Set("description", optValue(p.Description))
	}
	if p.Priority.Present {
		b = b.Set("priority", optValue(p.Priority))
	}
	if p.DueDate.Present {
		b = b.Set("due_date", optValue(p.DueDate))
	}
	if p.CategoryID.Present {
		b = b.Set("category_id", optValue(p.CategoryID))
	}
	if p.Completed.Present {
		b = b.Set("completed", optValue(p.Completed))
	}
	b = b.Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).Where(sq.Eq{"id": id})
	query, args, err := b.ToSql()
	return query, args, true, err
}

// Update applies a sparse patch. The caller has already verified ownership.
func (r *TodoRepo) Update(ctx context.Context, id string, p models.TodoPatch) error {
	query, args, ok, err := r.buildUpdate(id, p)
	if err != nil || !ok {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		logger.Error(ctx, "Update todo failed", "error", err, "id", id)
		return err
	}
	return nil
}

// Delete removes a todo and returns the deleted row, or sql.ErrNoRows.
func (r *TodoRepo) Delete(ctx context.Context, id string) (*models.Todo, error) {
	var t models.Todo
	err := r.db.GetContext(ctx, &t, `DELETE FROM todos WHERE id = $1 RETURNING *`, id)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error(ctx, "Delete todo failed", "error", err, "id", id)
		}
		return nil, err
	}
	return &t, nil
}

// SetCompleted flips the completed flag, scoped to the owner.
// Returns sql.ErrNoRows when no owned todo matched.
func (r *TodoRepo) SetCompleted(ctx context.Context, id, userID string, completed bool) (*models.Todo, error) {
	var t models.Todo
	err := r.db.GetContext(ctx, &t, `
		UPDATE todos
		SET completed = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND user_id = $3
		RETURNING *`, completed, id, userID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// optValue maps a present Optional to its SQL value (nil for explicit null).
func optValue[T any](o models.Optional[T]) interface{} {
	if o.Value == nil {
		return nil
	}
	return *o.Value
}
