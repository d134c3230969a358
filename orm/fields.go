package orm

import (
	"reflect"
	"sort"
)

// PrimaryKey is the column holding a record's identifier.
const PrimaryKey = "id"

// Fields maps column names to values. It is used for records, filters and
// payloads alike.
type Fields map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a new Fields holding the receiver's entries overlaid with
// each of others in order. Later entries win. Neither receiver nor arguments
// are modified.
func (f Fields) Merge(others ...Fields) Fields {
	out := f.Clone()
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Without returns a copy of f without the given columns.
func (f Fields) Without(columns ...string) Fields {
	out := f.Clone()
	for _, c := range columns {
		delete(out, c)
	}
	return out
}

// Matches reports whether every entry of filter is present in f with an
// equal value. A nil filter value matches an absent column.
func (f Fields) Matches(filter Fields) bool {
	for k, want := range filter {
		got, ok := f[k]
		if !ok {
			if want == nil {
				continue
			}
			return false
		}
		if !EqualValues(got, want) {
			return false
		}
	}
	return true
}

// Columns returns the column names in sorted order.
func (f Fields) Columns() []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// EqualValues compares two column values. Numbers are compared by value
// regardless of their Go type, so an int parent id matches an int64 or
// float64 foreign key read back from a driver.
func EqualValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ia, ok := asInt(a); ok {
		if ib, ok := asInt(b); ok {
			return ia == ib
		}
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f < -(1<<63) || f >= 1<<63 || f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
