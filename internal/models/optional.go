package models

import (
	"encoding/json"
	"time"
)

// Optional distinguishes an absent JSON field from an explicit null. Patch
// bodies use it so that `{"due_date": null}` clears a column while an omitted
// key leaves it untouched.
type Optional[T any] struct {
	Present bool
	Value   *T
}

// Set returns a present Optional holding v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: &v}
}

// SetNull returns a present Optional holding an explicit null.
func SetNull[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Present = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// TodoPatch is the sparse update body for PUT /api/todos/:id.
type TodoPatch struct {
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	Priority    Optional[string]    `json:"priority"`
	DueDate     Optional[time.Time] `json:"due_date"`
	CategoryID  Optional[string]    `json:"category_id"`
	Completed   Optional[bool]      `json:"completed"`
}

// Empty reports whether no field is present in the patch.
func (p TodoPatch) Empty() bool {
	return !p.Title.Present && !p.Description.Present && !p.Priority.Present &&
		!p.DueDate.Present && !p.CategoryID.Present && !p.Completed.Present
}

// UserPatch is the sparse update body for PUT /api/users/:id.
type UserPatch struct {
	Username  Optional[string] `json:"username"`
	Email     Optional[string] `json:"email"`
	FirstName Optional[string] `json:"first_name"`
	LastName  Optional[string] `json:"last_name"`
	Password  Optional[string] `json:"password"`
}

func (p UserPatch) Empty() bool {
	return !p.Username.Present && !p.Email.Present && !p.FirstName.Present &&
		!p.LastName.Present && !p.Password.Present
}

// CategoryPatch is the sparse update body for PUT /api/categories/:id.
type CategoryPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	Color       Optional[string] `json:"color"`
}

func (p CategoryPatch) Empty() bool {
	return !p.Name.Present && !p.Description.Present && !p.Color.Present
}
