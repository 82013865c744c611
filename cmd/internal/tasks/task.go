package tasks

import (
	"errors"
	"time"

	"tasker/cmd/internal/store"
)

// ResourceType names tasks in change events.
const ResourceType = "task"

var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
)

// Task is a to-do item owned by one account.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeletedTask identifies a removed task in a change event.
type DeletedTask struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// CreateInput are the client-writable fields for a new task.
type CreateInput struct {
	Title       string
	Description *string
	Completed   bool
}

// UpdateInput replaces the title and optionally the other fields.
// Nil fields keep their stored value.
type UpdateInput struct {
	Title       string
	Description *string
	Completed   *bool
}

func taskFromRecord(r store.Record) Task {
	return Task{
		ID:          r.String("id"),
		OwnerID:     r.String("owner_id"),
		Title:       r.String("title"),
		Description: r.StringPtr("description"),
		Completed:   r.Bool("completed"),
		CreatedAt:   r.Time("created_at"),
		UpdatedAt:   r.Time("updated_at"),
	}
}
