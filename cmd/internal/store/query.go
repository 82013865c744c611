package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"tasker/cmd/identity/ids"
)

var identRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// dialect captures the few SQL differences between backends.
type dialect struct {
	quote       func(ident string) string
	placeholder func(n int) string
}

type query struct {
	sql  string
	args []any
}

func checkIdent(names ...string) error {
	for _, n := range names {
		if !identRE.MatchString(n) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, n)
		}
	}
	return nil
}

// sortedKeys keeps generated SQL deterministic for a given map.
func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d dialect) where(f Filter, argOffset int) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}
	keys := sortedKeys(f)
	if err := checkIdent(keys...); err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		parts = append(parts, d.quote(k)+" = "+d.placeholder(argOffset+i+1))
		args = append(args, f[k])
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (d dialect) selectQuery(table string, f Filter, limit int) (query, error) {
	if err := checkIdent(table); err != nil {
		return query{}, err
	}
	where, args, err := d.where(f, 0)
	if err != nil {
		return query{}, err
	}
	sql := "SELECT * FROM " + d.quote(table) + where + " ORDER BY " + d.quote("seq") + " ASC"
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query{sql: sql, args: args}, nil
}

// insertQuery assigns a ULID id when fields has none.
func (d dialect) insertQuery(table string, fields Record) (query, string, error) {
	if err := checkIdent(table); err != nil {
		return query{}, "", err
	}
	if len(fields) == 0 {
		return query{}, "", ErrEmptyFields
	}

	row := make(Record, len(fields)+1)
	for k, v := range fields {
		row[k] = v
	}
	id, _ := row["id"].(string)
	if id == "" {
		newID, err := ids.NewULID(time.Now().UTC())
		if err != nil {
			return query{}, "", err
		}
		id = newID
		row["id"] = id
	}

	keys := sortedKeys(row)
	if err := checkIdent(keys...); err != nil {
		return query{}, "", err
	}
	cols := make([]string, 0, len(keys))
	marks := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		cols = append(cols, d.quote(k))
		marks = append(marks, d.placeholder(i+1))
		args = append(args, row[k])
	}

	sql := "INSERT INTO " + d.quote(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")" +
		" RETURNING " + d.quote("id")
	return query{sql: sql, args: args}, id, nil
}

func (d dialect) updateQuery(table string, fields Record, f Filter) (query, error) {
	if err := checkIdent(table); err != nil {
		return query{}, err
	}
	if len(fields) == 0 {
		return query{}, ErrEmptyFields
	}
	if len(f) == 0 {
		return query{}, ErrEmptyFilter
	}

	keys := sortedKeys(fields)
	if err := checkIdent(keys...); err != nil {
		return query{}, err
	}
	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+len(f))
	for i, k := range keys {
		sets = append(sets, d.quote(k)+" = "+d.placeholder(i+1))
		args = append(args, fields[k])
	}

	where, wargs, err := d.where(f, len(keys))
	if err != nil {
		return query{}, err
	}
	args = append(args, wargs...)

	return query{
		sql:  "UPDATE " + d.quote(table) + " SET " + strings.Join(sets, ", ") + where,
		args: args,
	}, nil
}

func (d dialect) deleteQuery(table string, f Filter) (query, error) {
	if err := checkIdent(table); err != nil {
		return query{}, err
	}
	if len(f) == 0 {
		return query{}, ErrEmptyFilter
	}
	where, args, err := d.where(f, 0)
	if err != nil {
		return query{}, err
	}
	return query{sql: "DELETE FROM " + d.quote(table) + where, args: args}, nil
}
