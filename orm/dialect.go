package orm

import (
	"fmt"
	"strings"
)

// Dialect abstracts SQL differences between database engines.
type Dialect interface {
	// Placeholder returns the bind parameter placeholder for the given
	// 1-based index. MySQL returns "?" regardless of index; PostgreSQL
	// returns "$1", "$2", etc.
	Placeholder(index int) string

	// QuoteIdent quotes an identifier (table name, column name) to safely
	// handle SQL reserved words. MySQL uses backticks; PostgreSQL uses
	// double quotes. A quote character inside name is doubled.
	QuoteIdent(name string) string

	// UseReturning reports whether INSERT should use a RETURNING clause
	// to retrieve the auto-generated primary key (PostgreSQL) rather
	// than relying on LastInsertId (MySQL).
	UseReturning() bool

	// ReturningClause returns the RETURNING clause appended to INSERT
	// statements. Returns an empty string for dialects that do not
	// support RETURNING (MySQL).
	ReturningClause(pk string) string

	// CountsMatchedRows reports whether RowsAffected after an UPDATE counts
	// the rows matched by WHERE. MySQL counts only rows whose values
	// changed unless the DSN sets clientFoundRows.
	CountsMatchedRows() bool
}

// MySQL is the Dialect for MySQL / MariaDB.
var MySQL Dialect = mysqlDialect{}

// PostgreSQL is the Dialect for PostgreSQL.
var PostgreSQL Dialect = postgresDialect{}

type mysqlDialect struct{}

func (mysqlDialect) Placeholder(_ int) string        { return "?" }
func (mysqlDialect) QuoteIdent(name string) string   { return quote(name, '`') }
func (mysqlDialect) UseReturning() bool              { return false }
func (mysqlDialect) ReturningClause(_ string) string { return "" }
func (mysqlDialect) CountsMatchedRows() bool         { return false }

type postgresDialect struct{}

func (postgresDialect) Placeholder(index int) string     { return fmt.Sprintf("$%d", index) }
func (postgresDialect) QuoteIdent(name string) string    { return quote(name, '"') }
func (postgresDialect) UseReturning() bool               { return true }
func (postgresDialect) ReturningClause(pk string) string { return " RETURNING " + quote(pk, '"') }
func (postgresDialect) CountsMatchedRows() bool          { return true }

func quote(name string, q byte) string {
	s := string(q)
	return s + strings.ReplaceAll(name, s, s+s) + s
}

// rewritePlaceholders converts ? to dialect-specific placeholders ($1, $2, …).
// A ? inside a quoted identifier or string literal is left alone.
// For MySQL this is a no-op.
func rewritePlaceholders(d Dialect, query string) string {
	if _, ok := d.(mysqlDialect); ok {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	idx := 1
	var inQuote byte
	for i := range len(query) {
		c := query[i]
		switch {
		case inQuote != 0:
			// An escaped (doubled) quote closes and reopens the quote.
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			inQuote = c
		case c == '?':
			b.WriteString(d.Placeholder(idx))
			idx++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// DialectFor returns the Dialect for a driver name as accepted by sql.Open
// ("mysql", "pgx", "postgres").
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "mysql":
		return MySQL, nil
	case "pgx", "postgres", "postgresql":
		return PostgreSQL, nil
	default:
		return nil, fmt.Errorf("orm: no dialect for driver %q", driverName)
	}
}
