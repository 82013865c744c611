package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func insertAccount(t *testing.T, st Store, email string) string {
	t.Helper()
	now := Millis(time.Now())
	id, err := st.InsertOne(context.Background(), TableAccounts, Record{
		"username":      "user",
		"email":         email,
		"password_hash": "x",
		"created_at":    now,
		"updated_at":    now,
	})
	require.NoError(t, err)
	return id
}

func TestSQLite_InsertAssignsIDAndFindOne(t *testing.T) {
	st := openMemory(t)
	ctx := context.Background()

	id := insertAccount(t, st, "a@example.com")
	assert.Len(t, id, 26)

	rec, err := st.FindOne(ctx, TableAccounts, Filter{"email": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, id, rec.String("id"))
	assert.Equal(t, "user", rec.String("username"))

	_, err = st.FindOne(ctx, TableAccounts, Filter{"email": "missing@example.com"})
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestSQLite_UniqueViolation(t *testing.T) {
	st := openMemory(t)
	insertAccount(t, st, "dup@example.com")

	now := Millis(time.Now())
	_, err := st.InsertOne(context.Background(), TableAccounts, Record{
		"username":      "other",
		"email":         "dup@example.com",
		"password_hash": "y",
		"created_at":    now,
		"updated_at":    now,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUniqueViolation), "got %v", err)
}

func TestSQLite_FindManyInsertionOrder(t *testing.T) {
	st := openMemory(t)
	ctx := context.Background()
	owner := insertAccount(t, st, "o@example.com")

	var want []string
	for _, title := range []string{"c", "a", "b"} {
		now := Millis(time.Now())
		id, err := st.InsertOne(ctx, TableTasks, Record{
			"owner_id":   owner,
			"title":      title,
			"completed":  false,
			"created_at": now,
			"updated_at": now,
		})
		require.NoError(t, err)
		want = append(want, id)
	}

	recs, err := st.FindMany(ctx, TableTasks, Filter{"owner_id": owner})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, want[i], r.String("id"))
		assert.False(t, r.Bool("completed"))
		assert.Nil(t, r.StringPtr("description"))
	}
}

func TestSQLite_UpdateDeleteReportAffected(t *testing.T) {
	st := openMemory(t)
	ctx := context.Background()
	owner := insertAccount(t, st, "o@example.com")
	other := insertAccount(t, st, "p@example.com")

	now := Millis(time.Now())
	id, err := st.InsertOne(ctx, TableTasks, Record{
		"owner_id": owner, "title": "t", "completed": false, "created_at": now, "updated_at": now,
	})
	require.NoError(t, err)

	n, err := st.UpdateOne(ctx, TableTasks, Record{"completed": true}, Filter{"id": id, "owner_id": other})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = st.UpdateOne(ctx, TableTasks, Record{"completed": true}, Filter{"id": id, "owner_id": owner})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rec, err := st.FindOne(ctx, TableTasks, Filter{"id": id})
	require.NoError(t, err)
	assert.True(t, rec.Bool("completed"))

	n, err = st.DeleteOne(ctx, TableTasks, Filter{"id": id, "owner_id": other})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = st.DeleteOne(ctx, TableTasks, Filter{"id": id, "owner_id": owner})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSQLite_DeleteAccountCascadesTasks(t *testing.T) {
	st := openMemory(t)
	ctx := context.Background()
	owner := insertAccount(t, st, "o@example.com")

	now := Millis(time.Now())
	_, err := st.InsertOne(ctx, TableTasks, Record{
		"owner_id": owner, "title": "t", "completed": false, "created_at": now, "updated_at": now,
	})
	require.NoError(t, err)

	_, err = st.DeleteOne(ctx, TableAccounts, Filter{"id": owner})
	require.NoError(t, err)

	recs, err := st.FindMany(ctx, TableTasks, Filter{"owner_id": owner})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLite_RejectsUnscopedAndInvalid(t *testing.T) {
	st := openMemory(t)
	ctx := context.Background()

	_, err := st.DeleteOne(ctx, TableTasks, nil)
	assert.ErrorIs(t, err, ErrEmptyFilter)

	_, err = st.UpdateOne(ctx, TableTasks, Record{"title": "x"}, Filter{})
	assert.ErrorIs(t, err, ErrEmptyFilter)

	_, err = st.FindMany(ctx, "tasks; DROP TABLE tasks", nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = st.FindOne(ctx, TableTasks, Filter{"id = id OR 1": 1})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestOpen_SelectsBackend(t *testing.T) {
	st, err := Open(context.Background(), "", PoolOptions{})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	assert.Equal(t, "sqlite", Backend(st))

	_, err = Open(context.Background(), "mysql://localhost/db", PoolOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"mysql"`)
}

func TestSQLite_ForeignKeyViolation(t *testing.T) {
	st := openMemory(t)
	now := Millis(time.Now())

	_, err := st.InsertOne(context.Background(), TableTasks, Record{
		"owner_id": "01J00000000000000000000000", "title": "t", "completed": false, "created_at": now, "updated_at": now,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForeignKey), "got %v", err)
	assert.False(t, errors.Is(err, ErrUniqueViolation))
}
