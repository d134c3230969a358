package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/hasone/hasone"
	"github.com/mickamy/hasone/orm"
)

func runCLI(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	base := []string{"-schema", "testdata/parent.hcl", "-owner", "parent", "-id", "1", "-relation", "child"}
	if err := run(t.Context(), append(base, args...), &stdout, &stderr); err != nil {
		return nil, err
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	return out, nil
}

func TestRunOps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want map[string]any
	}{
		{
			name: "get without child",
			args: []string{"-op", "get"},
		},
		{
			name: "build",
			args: []string{"-op", "build", "-data", `{"name":"b","parent_id":9}`},
			want: map[string]any{"name": "b", "parent_id": float64(1)},
		},
		{
			name: "create",
			args: []string{"-op", "create", "-data", `{"name":"c"}`},
			want: map[string]any{"id": float64(2), "name": "c", "parent_id": float64(1)},
		},
		{
			name: "get or create",
			args: []string{"-op", "get-or-create", "-data", `{"name":"g","n":1.5}`},
			want: map[string]any{"id": float64(2), "name": "g", "n": 1.5, "parent_id": float64(1)},
		},
		{
			name: "set",
			args: []string{"-op", "set", "-child-id", "1"},
			want: map[string]any{"id": float64(1), "name": "orphan", "parent_id": float64(1)},
		},
		{
			name: "update without child",
			args: []string{"-op", "update", "-data", `{"name":"u"}`},
		},
		{
			name: "remove without child",
			args: []string{"-op", "remove"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	_, err := runCLI(t, "-op", "create", "-relation", "readonly")
	require.ErrorIs(t, err, hasone.ErrImmutable)

	_, err = runCLI(t, "-id", "42")
	require.ErrorIs(t, err, orm.ErrNotFound)

	_, err = runCLI(t, "-relation", "missing")
	require.ErrorIs(t, err, orm.ErrUnknownRelation)

	_, err = runCLI(t, "-op", "explode")
	require.ErrorContains(t, err, "unknown op")

	_, err = runCLI(t, "-op", "set")
	require.ErrorContains(t, err, "-child-id")

	_, err = runCLI(t, "-op", "create", "-data", "[1]")
	require.ErrorContains(t, err, "parse -data")

	_, err = runCLI(t, "-driver", "sqlite")
	require.ErrorContains(t, err, "unknown driver")

	err = run(t.Context(), []string{"-owner", "parent"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorContains(t, err, "required")
}

func TestParseFlagsSeed(t *testing.T) {
	t.Parallel()

	base := []string{"-schema", "s.hcl", "-owner", "parent", "-id", "1", "-relation", "child"}
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "memory seeds by default", args: nil, want: true},
		{name: "mysql does not seed by default", args: []string{"-driver", "mysql"}, want: false},
		{name: "dynamodb does not seed by default", args: []string{"-driver", "dynamodb"}, want: false},
		{name: "explicit seed", args: []string{"-driver", "postgres", "-seed"}, want: true},
		{name: "explicit no seed", args: []string{"-seed=false"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o, err := parseFlags(append(append([]string{}, base...), tt.args...), &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.seed)
		})
	}
}

func TestRunWithoutSeed(t *testing.T) {
	t.Parallel()

	_, err := runCLI(t, "-seed=false")
	require.ErrorIs(t, err, orm.ErrNotFound)
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	require.NoError(t, run(t.Context(), []string{"-version"}, &stdout, &bytes.Buffer{}))
	assert.Equal(t, "hasone dev\n", stdout.String())
}

func TestParseData(t *testing.T) {
	t.Parallel()

	got, err := parseData(`{"a":1,"b":2.5,"c":"x","d":[1,{"e":2}],"f":null}`)
	require.NoError(t, err)
	assert.Equal(t, orm.Fields{
		"a": int64(1),
		"b": 2.5,
		"c": "x",
		"d": []any{int64(1), map[string]any{"e": int64(2)}},
		"f": nil,
	}, got)
}

func TestParseID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(7), parseID("7"))
	assert.Equal(t, "3f1c", parseID("3f1c"))
}
