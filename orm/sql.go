package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mickamy/hasone/scope"
)

const (
	mysqlDuplicateEntry    = 1062
	postgresUniqueViolated = "23505"
)

// SQLDriver persists models through a Querier. Tables are expected to have
// an auto-generated primary key column named id.
type SQLDriver struct {
	db          Querier
	tableScopes map[string]scope.Scopes
}

// SQLOption configures a SQLDriver.
type SQLOption func(s *SQLDriver)

// WithTableScopes adds scopes to every SELECT issued against table, e.g. a
// soft-delete condition.
func WithTableScopes(table string, scopes ...scope.Scope) SQLOption {
	return func(s *SQLDriver) {
		s.tableScopes[table] = s.tableScopes[table].Append(scopes...)
	}
}

// NewSQLDriver returns a Driver running statements on db. Pass a *DB, or a
// *Tx to scope a unit of work to one transaction.
func NewSQLDriver(db Querier, opts ...SQLOption) *SQLDriver {
	s := &SQLDriver{db: db, tableScopes: make(map[string]scope.Scopes)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Driver = (*SQLDriver)(nil)

func (s *SQLDriver) Find(ctx context.Context, table string, filter Fields, limit int) ([]Fields, error) {
	d := s.db.dialect()
	scopes := scope.Match(filter, d.QuoteIdent).
		Append(s.tableScopes[table]...).
		Append(scope.OrderBy(d.QuoteIdent(PrimaryKey)))
	if limit > 0 {
		scopes = append(scopes, scope.Limit(limit))
	}
	query, args := newQuery(d, table).scopes(scopes...).buildSelect()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}

	var result []Fields
	for rows.Next() {
		row, err := scanFields(rows, cols)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	return result, nil
}

// Insert inserts a row. The generated primary key is read via RETURNING
// (PostgreSQL) or LastInsertId (MySQL) unless fields already carries one.
func (s *SQLDriver) Insert(ctx context.Context, table string, fields Fields) (any, error) {
	d := s.db.dialect()
	columns := fields.Columns()
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = fields[c]
	}

	query := newQuery(d, table).buildInsert(columns)

	if id, ok := fields[PrimaryKey]; ok && id != nil {
		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return nil, duplicateKey(table, err)
		}
		return id, nil
	}

	if d.UseReturning() {
		query += d.ReturningClause(PrimaryKey)
		rows, err := s.db.QueryContext(ctx, query, values...)
		if err != nil {
			return nil, duplicateKey(table, err)
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, err //nolint:wrapcheck // pass through
			}
			return nil, errors.New("orm: INSERT RETURNING returned no rows")
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		return id, rows.Err() //nolint:wrapcheck // pass through
	}

	result, err := s.db.ExecContext(ctx, query, values...)
	if err != nil {
		return nil, duplicateKey(table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	return id, nil
}

// Update sets every column of fields on the row identified by id. It fails
// with ErrNotFound if there is no such row.
func (s *SQLDriver) Update(ctx context.Context, table string, id any, fields Fields) error {
	if id == nil {
		return ErrNoPrimaryKey
	}
	d := s.db.dialect()
	setCols := fields.Without(PrimaryKey).Columns()
	if len(setCols) == 0 {
		return s.exists(ctx, table, id)
	}
	setVals := make([]any, len(setCols))
	for i, c := range setCols {
		setVals[i] = fields[c]
	}

	query, args := newQuery(d, table).
		scopes(scope.Eq(d.QuoteIdent(PrimaryKey), id)).
		buildUpdate(setCols)

	result, err := s.db.ExecContext(ctx, query, append(setVals, args...)...)
	if err != nil {
		return duplicateKey(table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err //nolint:wrapcheck // pass through
	}
	switch {
	case n > 0:
		return nil
	case d.CountsMatchedRows():
		return fmt.Errorf("%w: %s %v", ErrNotFound, table, id)
	default:
		// Zero changed rows also means the values were already set.
		return s.exists(ctx, table, id)
	}
}

// Delete deletes the row identified by id. It fails with ErrNotFound if
// there is no such row.
func (s *SQLDriver) Delete(ctx context.Context, table string, id any) error {
	if id == nil {
		return ErrNoPrimaryKey
	}
	d := s.db.dialect()
	query, args := newQuery(d, table).
		scopes(scope.Eq(d.QuoteIdent(PrimaryKey), id)).
		buildDelete()

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err //nolint:wrapcheck // pass through
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err //nolint:wrapcheck // pass through
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %v", ErrNotFound, table, id)
	}
	return nil
}

// exists returns ErrNotFound unless table has a row identified by id.
// Table scopes are not applied, matching UPDATE and DELETE.
func (s *SQLDriver) exists(ctx context.Context, table string, id any) error {
	d := s.db.dialect()
	query, args := newQuery(d, table).
		scopes(scope.Select("1"), scope.Eq(d.QuoteIdent(PrimaryKey), id), scope.Limit(1)).
		buildSelect()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		return nil
	}
	if err := rows.Err(); err != nil {
		return err //nolint:wrapcheck // pass through
	}
	return fmt.Errorf("%w: %s %v", ErrNotFound, table, id)
}

// duplicateKey wraps unique violations reported by the MySQL and
// PostgreSQL drivers with ErrDuplicateKey. Other errors pass through.
func duplicateKey(table string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s: %w", ErrDuplicateKey, table, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolated {
		return fmt.Errorf("%w: %s: %w", ErrDuplicateKey, table, err)
	}
	return err
}

// scanFields scans the current row into Fields keyed by column name.
// Byte slices are returned as strings.
func scanFields(rows *sql.Rows, cols []string) (Fields, error) {
	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("orm: scan row: %w", err)
	}
	row := make(Fields, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}
