package store

import (
	"context"
	"strings"
)

// Open selects a backend from url:
//
//	postgres://... | postgresql://...  PostgreSQL
//	sqlite:<path>                      SQLite file
//	""                                 in-memory SQLite
func Open(ctx context.Context, url string, opts PoolOptions) (Store, error) {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url, opts)
	case strings.HasPrefix(url, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite:"))
	case url == "":
		return OpenSQLite(ctx, MemoryPath)
	default:
		return nil, errUnsupportedURL(url)
	}
}

// Backend names the driver behind s, for logs.
func Backend(s Store) string {
	switch s.(type) {
	case *PostgresStore:
		return "postgres"
	case *SQLiteStore:
		return "sqlite"
	default:
		return "unknown"
	}
}

type errUnsupportedURL string

func (e errUnsupportedURL) Error() string {
	scheme, _, _ := strings.Cut(string(e), ":")
	return "store: unsupported database url scheme " + `"` + scheme + `"`
}
