package models

import "time"

// Priority levels a todo can carry.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of low, medium, high.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// User represents an account. Password is never serialized.
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	FirstName *string   `json:"first_name" db:"first_name"`
	LastName  *string   `json:"last_name" db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Category is owned by a user; todos reference it with SET NULL on delete.
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Color       string    `json:"color" db:"color"`
	UserID      string    `json:"user_id" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryWithCount is a category row joined with its todo count.
type CategoryWithCount struct {
	Category
	TodoCount int `json:"todo_count" db:"todo_count"`
}

// Todo is the core entity. Overdue status is derived, never stored.
type Todo struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	Priority    string     `json:"priority" db:"priority"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	UserID      string     `json:"user_id" db:"user_id"`
	CategoryID  *string    `json:"category_id" db:"category_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TodoDetail is a todo joined with owner and category display fields.
type TodoDetail struct {
	Todo
	Username      *string `json:"username" db:"username"`
	FirstName     *string `json:"first_name" db:"first_name"`
	LastName      *string `json:"last_name" db:"last_name"`
	CategoryName  *string `json:"category_name" db:"category_name"`
	CategoryColor *string `json:"category_color" db:"category_color"`
}

// Pagination is the envelope attached to every list response.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPagination builds the envelope from a total row count and the applied window.
func NewPagination(total, limit, offset int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// Activity actions published to the event topic after todo mutations.
const (
	ActivityCreated   = "created"
	ActivityUpdated   = "updated"
	ActivityCompleted = "completed"
	ActivityDeleted   = "deleted"
)

// ActivityEvent is the message payload for the todo activity topic.
type ActivityEvent struct {
	Action     string    `json:"action"`
	TodoID     string    `json:"todo_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
