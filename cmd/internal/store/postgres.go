package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var pgDialect = dialect{
	quote:       func(ident string) string { return pgx.Identifier{ident}.Sanitize() },
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// PostgresStore is a Store backed by a pgx pool.
// It owns the pool and closes it on Close.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// PoolOptions sizes the pgx pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// OpenPostgres connects, verifies connectivity and applies migrations.
func OpenPostgres(ctx context.Context, url string, opts PoolOptions) (*PostgresStore, error) {
	pool, err := newPool(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, goose.DialectPostgres, stdlib.OpenDBFromPool(pool), postgresMigrations()); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func newPool(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns >= 0 {
		pcfg.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := pingPool(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// pingPool checks if we can acquire a connection within timeout.
func pingPool(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

func (s *PostgresStore) FindOne(ctx context.Context, table string, filter Filter) (Record, error) {
	q, err := pgDialect.selectQuery(table, filter, 1)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, err
	}
	return Record(m), nil
}

func (s *PostgresStore) FindMany(ctx context.Context, table string, filter Filter) ([]Record, error) {
	q, err := pgDialect.selectQuery(table, filter, 0)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(maps))
	for _, m := range maps {
		out = append(out, Record(m))
	}
	return out, nil
}

func (s *PostgresStore) InsertOne(ctx context.Context, table string, fields Record) (string, error) {
	q, _, err := pgDialect.insertQuery(table, fields)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.pool.QueryRow(ctx, q.sql, q.args...).Scan(&id); err != nil {
		return "", mapPGError(err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateOne(ctx context.Context, table string, fields Record, filter Filter) (int64, error) {
	q, err := pgDialect.updateQuery(table, fields, filter)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, q.sql, q.args...)
	if err != nil {
		return 0, mapPGError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteOne(ctx context.Context, table string, filter Filter) (int64, error) {
	q, err := pgDialect.deleteQuery(table, filter)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, q.sql, q.args...)
	if err != nil {
		return 0, mapPGError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return pingPool(ctx, s.pool, 2*time.Second)
}

func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return errors.Join(ErrUniqueViolation, err)
	case pgForeignKeyViolation:
		return errors.Join(ErrForeignKey, err)
	}
	return err
}
