package orm

import (
	"fmt"
	"strings"

	"github.com/mickamy/hasone/scope"
)

// query is a pending statement against a single table.
// Builder methods return a new query; the receiver is never modified.
type query struct {
	d     Dialect
	table string

	wheres   []whereClause
	orderBys []string
	selects  *string
	limit    *int
	offset   *int
}

type whereClause struct {
	clause string
	args   []any
}

func newQuery(d Dialect, table string) *query {
	return &query{d: d, table: table}
}

// clone returns a shallow copy with slices copied to avoid aliasing.
func (q *query) clone() *query {
	q2 := *q
	q2.wheres = append([]whereClause(nil), q.wheres...)
	q2.orderBys = append([]string(nil), q.orderBys...)
	return &q2
}

// scopes applies the given scope.Scope values to a copy of the query.
func (q *query) scopes(scopes ...scope.Scope) *query {
	q2 := q.clone()
	for _, s := range scopes {
		s.Apply(q2)
	}
	return q2
}

// --- scope.Applier implementation ---

func (q *query) ApplyWhere(clause string, args []any) {
	q.wheres = append(q.wheres, whereClause{clause, args})
}

func (q *query) ApplyOrderBy(clause string) {
	q.orderBys = append(q.orderBys, clause)
}

func (q *query) ApplyLimit(n int)  { q.limit = &n }
func (q *query) ApplyOffset(n int) { q.offset = &n }

func (q *query) ApplySelect(columns string) {
	q.selects = &columns
}

var _ scope.Applier = (*query)(nil)

// --- SQL building ---

// qi quotes an identifier (table/column name) using the dialect.
func (q *query) qi(name string) string {
	return q.d.QuoteIdent(name)
}

// quoteColumns joins column names with dialect-aware quoting.
func (q *query) quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = q.qi(c)
	}
	return strings.Join(quoted, ", ")
}

func (q *query) buildSelect() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")

	if q.selects != nil {
		b.WriteString(*q.selects)
	} else {
		b.WriteString("*")
	}

	b.WriteString(" FROM ")
	b.WriteString(q.qi(q.table))

	args := q.appendWhere(&b)

	if len(q.orderBys) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.orderBys, ", "))
	}

	if q.limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *q.limit)
	}
	if q.offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *q.offset)
	}

	return rewritePlaceholders(q.d, b.String()), args
}

func (q *query) buildInsert(columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return rewritePlaceholders(q.d, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		q.qi(q.table),
		q.quoteColumns(columns),
		strings.Join(placeholders, ", "),
	))
}

func (q *query) buildUpdate(setCols []string) (string, []any) {
	sets := make([]string, len(setCols))
	for i, col := range setCols {
		sets[i] = q.qi(col) + " = ?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", q.qi(q.table), strings.Join(sets, ", "))
	args := q.appendWhere(&b)
	return rewritePlaceholders(q.d, b.String()), args
}

func (q *query) buildDelete() (string, []any) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(q.qi(q.table))
	args := q.appendWhere(&b)
	return rewritePlaceholders(q.d, b.String()), args
}

func (q *query) appendWhere(b *strings.Builder) []any {
	if len(q.wheres) == 0 {
		return nil
	}

	var args []any
	b.WriteString(" WHERE ")
	for i, w := range q.wheres {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(w.clause)
		args = append(args, w.args...)
	}
	return args
}
