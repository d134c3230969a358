package scope_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/hasone/scope"
)

// mockApplier records calls from Scope.Apply for assertions.
type mockApplier struct {
	wheres   []appliedWhere
	orderBys []string
	selects  []string
	limit    *int
	offset   *int
}

type appliedWhere struct {
	clause string
	args   []any
}

func (m *mockApplier) ApplyWhere(clause string, args []any) {
	m.wheres = append(m.wheres, appliedWhere{clause, args})
}
func (m *mockApplier) ApplyOrderBy(clause string) { m.orderBys = append(m.orderBys, clause) }
func (m *mockApplier) ApplyLimit(n int)           { m.limit = &n }
func (m *mockApplier) ApplyOffset(n int)          { m.offset = &n }
func (m *mockApplier) ApplySelect(columns string) { m.selects = append(m.selects, columns) }

func apply(scopes ...scope.Scope) *mockApplier {
	m := &mockApplier{}
	for _, s := range scopes {
		s.Apply(m)
	}
	return m
}

func TestWhere(t *testing.T) {
	t.Parallel()

	m := apply(scope.Where("name = ? AND role = ?", "alice", "admin"))

	require.Len(t, m.wheres, 1)
	assert.Equal(t, "name = ? AND role = ?", m.wheres[0].clause)
	assert.Equal(t, []any{"alice", "admin"}, m.wheres[0].args)
}

func TestEq(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  any
		clause string
		args   []any
	}{
		{name: "value", value: 7, clause: "owner_id = ?", args: []any{7}},
		{name: "nil", value: nil, clause: "owner_id IS NULL", args: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := apply(scope.Eq("owner_id", tt.value))
			require.Len(t, m.wheres, 1)
			assert.Equal(t, tt.clause, m.wheres[0].clause)
			assert.Equal(t, tt.args, m.wheres[0].args)
		})
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	quote := func(s string) string { return `"` + s + `"` }
	ss := scope.Match(map[string]any{"name": "a", "deleted_at": nil, "owner_id": 1}, quote)

	m := apply(ss...)
	require.Len(t, m.wheres, 3)
	assert.Equal(t, `"deleted_at" IS NULL`, m.wheres[0].clause)
	assert.Equal(t, `"name" = ?`, m.wheres[1].clause)
	assert.Equal(t, []any{"a"}, m.wheres[1].args)
	assert.Equal(t, `"owner_id" = ?`, m.wheres[2].clause)
	assert.Equal(t, []any{1}, m.wheres[2].args)
}

func TestMatchEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, scope.Match(nil, strconv.Quote))
}

func TestOrderLimitOffsetSelect(t *testing.T) {
	t.Parallel()

	m := apply(
		scope.OrderBy("created_at DESC"),
		scope.Limit(10),
		scope.Offset(20),
		scope.Select("id", "name", "email"),
	)

	assert.Equal(t, []string{"created_at DESC"}, m.orderBys)
	require.NotNil(t, m.limit)
	assert.Equal(t, 10, *m.limit)
	require.NotNil(t, m.offset)
	assert.Equal(t, 20, *m.offset)
	assert.Equal(t, []string{"id, name, email"}, m.selects)
}

func TestIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scope  scope.Scope
		clause string
		args   []any
	}{
		{name: "ints", scope: scope.In("id", []int{1, 2, 3}), clause: "id IN (?, ?, ?)", args: []any{1, 2, 3}},
		{name: "strings", scope: scope.In("role", []string{"admin", "editor"}), clause: "role IN (?, ?)", args: []any{"admin", "editor"}},
		{name: "empty", scope: scope.In("id", []int{}), clause: "1 = 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := apply(tt.scope)
			require.Len(t, m.wheres, 1)
			assert.Equal(t, tt.clause, m.wheres[0].clause)
			assert.Equal(t, tt.args, m.wheres[0].args)
		})
	}
}

func TestScopesAppendDoesNotMutate(t *testing.T) {
	t.Parallel()

	original := scope.Scopes{scope.Where("x = ?", 1)}
	appended := original.Append(scope.Where("y = ?", 2), scope.Limit(10))

	assert.Len(t, original, 1)
	assert.Len(t, appended, 3)
}
