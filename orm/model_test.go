package orm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mickamy/hasone/orm"
)

func TestModellerCreateModel(t *testing.T) {
	t.Parallel()

	m := orm.New(orm.NewMemoryDriver())
	users := m.CreateModel("users")

	assert.Same(t, users, m.CreateModel("users"))
	assert.Same(t, m, users.Modeller())
	assert.Equal(t, "users", users.TableName())

	got, ok := m.Model("users")
	assert.True(t, ok)
	assert.Same(t, users, got)

	_, ok = m.Model("posts")
	assert.False(t, ok)
}

func TestModellerUseExtend(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	m := orm.New(orm.NewMemoryDriver(), orm.WithLogger(zap.New(core)))

	_, ok := m.Capability("greet")
	assert.False(t, ok)

	m.Use(func(m *orm.Modeller) { m.Extend("greet", "hello") })

	c, ok := m.Capability("greet")
	require.True(t, ok)
	assert.Equal(t, "hello", c)
	assert.Equal(t, 1, logs.FilterMessage("orm: capability installed").Len())
}

func TestModelFindOrCreate(t *testing.T) {
	t.Parallel()

	d := orm.NewMemoryDriver()
	users := orm.New(d).CreateModel("users")
	ctx := t.Context()

	first, err := users.FindOrCreate(ctx, orm.Fields{"email": "a@example.com"}, orm.Fields{"name": "a", "email": "x"})
	require.NoError(t, err)
	second, err := users.FindOrCreate(ctx, orm.Fields{"email": "a@example.com"}, orm.Fields{"name": "b"})
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, "a", second.Get("name"))
	assert.Equal(t, []orm.Fields{{"id": 1, "name": "a", "email": "a@example.com"}}, d.Rows("users"))
}

func TestModelCreateOrUpdate(t *testing.T) {
	t.Parallel()

	d := orm.NewMemoryDriver()
	users := orm.New(d).CreateModel("users")
	ctx := t.Context()

	for _, name := range []string{"a", "b"} {
		rec, err := users.CreateOrUpdate(ctx, orm.Fields{"email": "a@example.com"}, orm.Fields{"name": name, "id": 50})
		require.NoError(t, err)
		assert.Equal(t, 50, rec.ID())
	}
	assert.Equal(t, []orm.Fields{{"id": 50, "name": "b", "email": "a@example.com"}}, d.Rows("users"))
}

func TestModelUpdateRemoveOneWithoutMatch(t *testing.T) {
	t.Parallel()

	d := orm.NewMemoryDriver()
	users := orm.New(d).CreateModel("users")

	rec, err := users.UpdateOne(t.Context(), orm.Fields{"id": 1}, orm.Fields{"name": "b"})
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = users.RemoveOne(t.Context(), orm.Fields{"id": 1})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, d.Rows("users"))
}

func TestRecordLifecycle(t *testing.T) {
	t.Parallel()

	d := orm.NewMemoryDriver()
	users := orm.New(d).CreateModel("users")
	ctx := t.Context()

	u := users.Build(orm.Fields{"name": "a"})
	assert.True(t, u.IsNew())
	assert.ErrorIs(t, u.Reload(ctx), orm.ErrNoPrimaryKey)
	assert.ErrorIs(t, u.Remove(ctx), orm.ErrNoPrimaryKey)

	require.NoError(t, u.Save(ctx))
	assert.Equal(t, 1, u.ID())

	u.Assign(orm.Fields{"id": 9, "name": "b"})
	assert.Equal(t, 1, u.ID())
	require.NoError(t, u.Save(ctx))

	other, err := users.FindOne(ctx, orm.Fields{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, "b", other.Get("name"))

	fields := u.Fields()
	fields["name"] = "mutated"
	assert.Equal(t, "b", u.Get("name"))

	require.NoError(t, u.Remove(ctx))
	assert.True(t, u.IsNew())
	assert.Equal(t, "b", u.Get("name"))
	assert.ErrorIs(t, other.Reload(ctx), orm.ErrNotFound)

	require.NoError(t, u.Save(ctx))
	assert.Equal(t, 2, u.ID())
}

func TestRecordTimestamps(t *testing.T) {
	t.Parallel()

	d := orm.NewMemoryDriver()
	users := orm.New(d, orm.WithTimestamps()).CreateModel("users")

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	u, err := users.Create(orm.WithClock(t.Context(), orm.FixedClock(created)), orm.Fields{"name": "a"})
	require.NoError(t, err)
	assert.Equal(t, created, u.Get("created_at"))
	assert.Equal(t, created, u.Get("updated_at"))

	u.Set("name", "b")
	require.NoError(t, u.Save(orm.WithClock(t.Context(), orm.FixedClock(updated))))
	assert.Equal(t, []orm.Fields{
		{"id": 1, "name": "b", "created_at": created, "updated_at": updated},
	}, d.Rows("users"))
}

func TestDefineRelation(t *testing.T) {
	t.Parallel()

	users := orm.New(orm.NewMemoryDriver()).CreateModel("users")
	calls := 0
	require.NoError(t, users.DefineRelation("tag", func(owner *orm.Record) any {
		calls++
		return owner.Get("name")
	}))

	require.ErrorIs(t, users.DefineRelation("tag", func(*orm.Record) any { return nil }), orm.ErrRelationExists)
	require.Error(t, users.DefineRelation("", func(*orm.Record) any { return nil }))
	require.Error(t, users.DefineRelation("nil", nil))
	assert.Equal(t, []string{"tag"}, users.Relations())

	u := users.Build(orm.Fields{"name": "a"})
	for range 2 {
		v, err := u.Relation("tag")
		require.NoError(t, err)
		assert.Equal(t, "a", v)
	}
	assert.Equal(t, 2, calls)

	_, err := u.Relation("missing")
	assert.ErrorIs(t, err, orm.ErrUnknownRelation)
}

func TestModelLogsAtDebug(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	users := orm.New(orm.NewMemoryDriver(), orm.WithLogger(zap.New(core))).CreateModel("users")

	_, err := users.FindOne(t.Context(), orm.Fields{"id": 1})
	require.NoError(t, err)

	entries := logs.FilterMessage("orm: find one").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "users", entries[0].ContextMap()["table"])
}

func TestZapLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	orm.NewZapLogger(zap.New(core)).Log(t.Context(), "SELECT 1", 2)

	entries := logs.FilterMessage("orm: query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
}
