package store

import (
	"fmt"
	"strings"
)

// fieldMatch selects records whose JSON field equals value or, for array fields,
// contains it.
type fieldMatch struct {
	field string
	value string
}

// buildWhereSQL joins the clauses into a WHERE fragment (empty string if no clauses).
func buildWhereSQL(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// buildWhereClause constructs the WHERE clause and args for the records of one entity.
// Returns the clauses, args, and the next parameter index.
// idx tracks the PostgreSQL positional parameter number ($1, $2, …).
func buildWhereClause(entity string, match *fieldMatch) ([]string, []any, int) {
	var where []string
	var args []any
	idx := 1

	where = append(where, fmt.Sprintf("entity = $%d", idx))
	args = append(args, entity)
	idx++

	if match != nil {
		// Scalars compare as text; arrays of ids use jsonb containment so the GIN index applies.
		where = append(where, fmt.Sprintf(
			"(data->>$%d = $%d OR (jsonb_typeof(data->$%d) = 'array' AND data->$%d ? $%d))",
			idx, idx+1, idx, idx, idx+1))
		args = append(args, match.field, match.value)
		idx += 2
	}

	return where, args, idx
}

// buildListQuery returns the SELECT for a filtered, insertion-ordered page of records.
// A limit of 0 selects every match.
func buildListQuery(entity string, match *fieldMatch, limit int) (string, []any) {
	where, args, idx := buildWhereClause(entity, match)
	query := "SELECT " + columns + " FROM records" + buildWhereSQL(where) + " ORDER BY created_at, id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, limit)
	}
	return query, args
}
