package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

var sqliteDialect = dialect{
	quote:       func(ident string) string { return `"` + ident + `"` },
	placeholder: func(int) string { return "?" },
}

// SQLiteStore is a Store backed by modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies migrations.
// Use MemoryPath for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = MemoryPath
	}

	var dsn string
	if path == MemoryPath {
		dsn = MemoryPath + "?_pragma=foreign_keys(1)"
	} else {
		dsn = filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Every pooled connection to :memory: is its own database.
	// A file database is also serialised to avoid SQLITE_BUSY under write bursts.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrateDB(ctx, goose.DialectSQLite3, db, sqliteMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FindOne(ctx context.Context, table string, filter Filter) (Record, error) {
	q, err := sqliteDialect.selectQuery(table, filter, 1)
	if err != nil {
		return nil, err
	}
	recs, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoRecord
	}
	return recs[0], nil
}

func (s *SQLiteStore) FindMany(ctx context.Context, table string, filter Filter) ([]Record, error) {
	q, err := sqliteDialect.selectQuery(table, filter, 0)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, q)
}

func (s *SQLiteStore) InsertOne(ctx context.Context, table string, fields Record) (string, error) {
	q, _, err := sqliteDialect.insertQuery(table, fields)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.db.QueryRowContext(ctx, q.sql, sqliteArgs(q.args)...).Scan(&id); err != nil {
		return "", mapSQLiteError(err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateOne(ctx context.Context, table string, fields Record, filter Filter) (int64, error) {
	q, err := sqliteDialect.updateQuery(table, fields, filter)
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, q)
}

func (s *SQLiteStore) DeleteOne(ctx context.Context, table string, filter Filter) (int64, error) {
	q, err := sqliteDialect.deleteQuery(table, filter)
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, q)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) exec(ctx context.Context, q query) (int64, error) {
	res, err := s.db.ExecContext(ctx, q.sql, sqliteArgs(q.args)...)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) query(ctx context.Context, q query) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q.sql, sqliteArgs(q.args)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// sqliteArgs stores booleans as 0/1 to match the INTEGER schema.
func sqliteArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if b, ok := a.(bool); ok {
			if b {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
			continue
		}
		out[i] = a
	}
	return out
}

func mapSQLiteError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return errors.Join(ErrUniqueViolation, err)
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errors.Join(ErrForeignKey, err)
		}
	}
	return err
}
