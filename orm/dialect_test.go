package orm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/hasone/orm"
)

func TestDialects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dialect   orm.Dialect
		holders   []string
		quoted    string
		returning bool
		clause    string
		matched   bool
		escaped   string
	}{
		{
			name:      "mysql",
			dialect:   orm.MySQL,
			holders:   []string{"?", "?", "?"},
			quoted:    "`order`",
			returning: false,
			clause:    "",
			matched:   false,
			escaped:   "`a``b\"c`",
		},
		{
			name:      "postgres",
			dialect:   orm.PostgreSQL,
			holders:   []string{"$1", "$2", "$10"},
			quoted:    `"order"`,
			returning: true,
			clause:    ` RETURNING "id"`,
			matched:   true,
			escaped:   `"a` + "`" + `b""c"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for i, index := range []int{1, 2, 10} {
				assert.Equal(t, tt.holders[i], tt.dialect.Placeholder(index))
			}
			assert.Equal(t, tt.quoted, tt.dialect.QuoteIdent("order"))
			assert.Equal(t, tt.returning, tt.dialect.UseReturning())
			assert.Equal(t, tt.clause, tt.dialect.ReturningClause("id"))
			assert.Equal(t, tt.matched, tt.dialect.CountsMatchedRows())
			assert.Equal(t, tt.escaped, tt.dialect.QuoteIdent("a`b\"c"))
		})
	}
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]orm.Dialect{
		"mysql":      orm.MySQL,
		"pgx":        orm.PostgreSQL,
		"postgres":   orm.PostgreSQL,
		"postgresql": orm.PostgreSQL,
	} {
		got, err := orm.DialectFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := orm.DialectFor("sqlite3")
	assert.Error(t, err)
}
