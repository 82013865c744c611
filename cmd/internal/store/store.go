// Package store is the table/filter persistence layer used by identity and tasks.
//
// It exposes five primitives keyed by table name and an exact-match filter.
// Two backends implement it: PostgreSQL (pgx) and SQLite (modernc).
package store

import (
	"context"
	"errors"
	"time"
)

// Table names.
const (
	TableAccounts = "accounts"
	TableTasks    = "tasks"
)

var (
	// ErrNoRecord is returned by FindOne when no row matches the filter.
	ErrNoRecord = errors.New("store: no record")
	// ErrUniqueViolation is returned when a write violates a unique constraint.
	ErrUniqueViolation = errors.New("store: unique violation")
	// ErrForeignKey is returned when a write references a row that does not exist.
	ErrForeignKey = errors.New("store: foreign key violation")
	// ErrInvalidIdentifier is returned for table or column names outside [a-z0-9_].
	ErrInvalidIdentifier = errors.New("store: invalid identifier")
	// ErrEmptyFilter guards UpdateOne/DeleteOne against unscoped writes.
	ErrEmptyFilter = errors.New("store: empty filter")
	// ErrEmptyFields is returned when an insert or update has nothing to write.
	ErrEmptyFields = errors.New("store: empty fields")
)

// Filter is an exact-match equality predicate on named columns (AND-combined).
type Filter map[string]any

// Record is one row keyed by column name.
type Record map[string]any

// Store is the persistence collaborator.
//
// FindMany returns rows in insertion order. UpdateOne and DeleteOne report the
// number of affected rows; zero is not an error.
type Store interface {
	FindOne(ctx context.Context, table string, filter Filter) (Record, error)
	FindMany(ctx context.Context, table string, filter Filter) ([]Record, error)
	InsertOne(ctx context.Context, table string, fields Record) (string, error)
	UpdateOne(ctx context.Context, table string, fields Record, filter Filter) (int64, error)
	DeleteOne(ctx context.Context, table string, filter Filter) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// String returns the column as a string, or "" when absent or NULL.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// StringPtr returns nil for NULL columns.
func (r Record) StringPtr(key string) *string {
	if r[key] == nil {
		return nil
	}
	s := r.String(key)
	return &s
}

// Int64 returns the column as an int64, or 0.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Bool accepts native booleans (Postgres) and 0/1 integers (SQLite).
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// Time decodes a unix-millisecond column.
func (r Record) Time(key string) time.Time {
	ms := r.Int64(key)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Millis is the column encoding for timestamps.
func Millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}
