package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPostgresForTest(t *testing.T) *PostgresStore {
	t.Helper()
	url := strings.TrimSpace(os.Getenv("TASKER_DATABASE_URL"))
	if url == "" {
		t.Skip("TASKER_DATABASE_URL not set; skipping Postgres integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := OpenPostgres(ctx, url, PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPostgres_ScopedWritesAndUnique(t *testing.T) {
	st := openPostgresForTest(t)
	ctx := context.Background()

	email := "pg-" + strings.ToLower(time.Now().UTC().Format("150405.000000000")) + "@example.com"
	now := Millis(time.Now())
	owner, err := st.InsertOne(ctx, TableAccounts, Record{
		"username": "pg", "email": email, "password_hash": "x", "created_at": now, "updated_at": now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = st.DeleteOne(context.Background(), TableAccounts, Filter{"id": owner}) })

	_, err = st.InsertOne(ctx, TableAccounts, Record{
		"username": "pg2", "email": email, "password_hash": "y", "created_at": now, "updated_at": now,
	})
	require.True(t, errors.Is(err, ErrUniqueViolation), "got %v", err)

	taskID, err := st.InsertOne(ctx, TableTasks, Record{
		"owner_id": owner, "title": "t", "completed": false, "created_at": now, "updated_at": now,
	})
	require.NoError(t, err)

	n, err := st.UpdateOne(ctx, TableTasks, Record{"completed": true}, Filter{"id": taskID, "owner_id": "someone-else"})
	require.NoError(t, err)
	assert.Zero(t, n)

	rec, err := st.FindOne(ctx, TableTasks, Filter{"id": taskID, "owner_id": owner})
	require.NoError(t, err)
	assert.False(t, rec.Bool("completed"))

	n, err = st.DeleteOne(ctx, TableTasks, Filter{"id": taskID, "owner_id": owner})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = st.InsertOne(ctx, TableTasks, Record{
		"owner_id": "01J00000000000000000000000", "title": "t", "completed": false, "created_at": now, "updated_at": now,
	})
	require.True(t, errors.Is(err, ErrForeignKey), "got %v", err)

	require.NoError(t, st.Ping(ctx))
}
