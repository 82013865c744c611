package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGDialect_UpdateScopesByFilter(t *testing.T) {
	q, err := pgDialect.updateQuery(TableTasks,
		Record{"title": "x", "completed": true},
		Filter{"owner_id": "o1", "id": "t1"},
	)
	require.NoError(t, err)

	assert.Equal(t,
		`UPDATE "tasks" SET "completed" = $1, "title" = $2 WHERE "id" = $3 AND "owner_id" = $4`,
		q.sql)
	assert.Equal(t, []any{true, "x", "t1", "o1"}, q.args)
}

func TestPGDialect_SelectOrdersBySeq(t *testing.T) {
	q, err := pgDialect.selectQuery(TableTasks, Filter{"owner_id": "o1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "tasks" WHERE "owner_id" = $1 ORDER BY "seq" ASC`, q.sql)

	q, err = pgDialect.selectQuery(TableAccounts, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "accounts" ORDER BY "seq" ASC LIMIT 1`, q.sql)
}

func TestDialect_InsertKeepsCallerID(t *testing.T) {
	q, id, err := sqliteDialect.insertQuery(TableAccounts, Record{"id": "fixed", "email": "e"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
	assert.Equal(t, `INSERT INTO "accounts" ("email", "id") VALUES (?, ?) RETURNING "id"`, q.sql)
}
