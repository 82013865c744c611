package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

func postgresMigrations() fs.FS { return subFS("migrations/postgres") }

func sqliteMigrations() fs.FS { return subFS("migrations/sqlite") }

func subFS(dir string) fs.FS {
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		// Paths are compile-time constants matched by the embed directive.
		panic(err)
	}
	return sub
}

// migrate applies all pending migrations and closes db.
func migrate(ctx context.Context, d goose.Dialect, db *sql.DB, fsys fs.FS) error {
	defer func() { _ = db.Close() }()
	return migrateDB(ctx, d, db, fsys)
}

// migrateDB uses a goose Provider; package-level goose state is never touched.
func migrateDB(ctx context.Context, d goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(d, db, fsys)
	if err != nil {
		return fmt.Errorf("store: goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}
