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

const userColumns = `id, username, email, first_name, last_name, created_at, updated_at`

// UserRepo issues user SQL against the pool.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// List returns a page of users (password excluded) plus the total count.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		logger.Error(ctx, "List users failed", "error", err)
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetByID returns the user without the password hash, or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetCredentials returns the user including the password hash, matched by
// username or email. Used only by login.
func (r *UserRepo) GetCredentials(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, username, email, password, first_name, last_name, created_at, updated_at
		FROM users
		WHERE username = $1 OR email = $1`, usernameOrEmail)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Taken reports whether the username or email is already registered,
// excluding excludeID when non-empty.
func (r *UserRepo) Taken(ctx context.Context, username, email, excludeID string) (bool, error) {
	b := psql.Select("1").From("users").
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}})
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

// Create inserts a new user. Password must already be hashed.
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password, first_name, last_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Username, u.Email, u.Password, u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Create user failed", "error", err)
	}
	return err
}

// Update applies a sparse patch and returns the updated profile.
// A present Password must already be hashed by the caller.
func (r *UserRepo) Update(ctx context.Context, id string, p models.UserPatch) (*models.User, error) {
	b := psql.Update("users")
	if p.Username.Present {
		b = b.Set("username", optValue(p.Username))
	}
	if p.Email.Present {
		b = b.Set("email", optValue(p.Email))
	}
	if p.FirstName.Present {
		b = b.Set("first_name", optValue(p.FirstName))
	}
	if p.LastName.Present {
		b = b.Set("last_name", optValue(p.LastName))
	}
	if p.Password.Present {
		b = b.Set("password", optValue(p.Password))
	}
	b = b.Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns)
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := r.db.GetContext(ctx, &u, query, args...); err != nil {
		if err != sql.ErrNoRows {
			logger.Error(ctx, "Update user failed", "error", err, "id", id)
		}
		return nil, err
	}
	return &u, nil
}

// Delete removes a user; the todos foreign key cascades. Returns the deleted
// username, or sql.ErrNoRows.
func (r *UserRepo) Delete(ctx context.Context, id string) (string, error) {
	var username string
	err := r.db.GetContext(ctx, &username, `DELETE FROM users WHERE id = $1 RETURNING username`, id)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Error(ctx, "Delete user failed", "error", err, "id", id)
		}
		return "", err
	}
	return username, nil
}

// TodoCounts is the per-user total/completed/pending summary attached to
// profile responses.
type TodoCounts struct {
	TotalTodos     int `json:"total_todos" db:"total_todos"`
	CompletedTodos int `json:"completed_todos" db:"completed_todos"`
	PendingTodos   int `json:"pending_todos" db:"pending_todos"`
}

// TodoCounts returns the user's todo summary.
func (r *UserRepo) TodoCounts(ctx context.Context, id string) (*TodoCounts, error) {
	var c TodoCounts
	err := r.db.GetContext(ctx, &c, `
		SELECT COUNT(*) AS total_todos,
		       COUNT(*) FILTER (WHERE completed = true) AS completed_todos,
		       COUNT(*) FILTER (WHERE completed = false) AS pending_todos
		FROM todos WHERE user_id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
