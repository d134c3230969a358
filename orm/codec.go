package orm

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mickamy/hasone/internal/naming"
)

var timeType = reflect.TypeOf(time.Time{})

type structField struct {
	index  int
	column string
}

// structFields lists the persisted fields of struct type t.
// Columns come from the `db:"name"` tag, falling back to the snake_case
// field name. `db:"-"` skips a field; the primaryKey option maps a field
// to PrimaryKey.
func structFields(t reflect.Type) []structField {
	fields := make([]structField, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous || !f.IsExported() {
			continue
		}
		column := naming.CamelToSnake(f.Name)
		if tag, ok := f.Tag.Lookup("db"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				column = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "primaryKey" {
					column = PrimaryKey
				}
			}
		}
		fields = append(fields, structField{index: i, column: column})
	}
	return fields
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, errors.New("orm: nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("orm: expected struct, got %T", v)
	}
	return rv, nil
}

// Encode converts a struct (or pointer to one) into Fields. A zero primary
// key is left out so the driver assigns one.
func Encode(v any) (Fields, error) {
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}
	out := make(Fields)
	for _, f := range structFields(rv.Type()) {
		fv := rv.Field(f.index)
		if f.column == PrimaryKey && fv.IsZero() {
			continue
		}
		out[f.column] = fv.Interface()
	}
	return out, nil
}

// Decode copies fields into the struct pointed to by dst. Columns without a
// matching struct field are ignored; numeric values are converted between
// Go numeric types.
func Decode(fields Fields, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("orm: Decode needs a non-nil pointer, got %T", dst)
	}
	rv, err := structValue(dst)
	if err != nil {
		return err
	}
	for _, f := range structFields(rv.Type()) {
		v, ok := fields[f.column]
		if !ok {
			continue
		}
		if err := assign(rv.Field(f.index), v); err != nil {
			return fmt.Errorf("orm: decode %s: %w", f.column, err)
		}
	}
	return nil
}

func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	switch {
	case isNumber(src.Kind()) && isNumber(dst.Kind()):
		return assignNumber(dst, v)
	case src.Kind() == dst.Kind() && src.Type().ConvertibleTo(dst.Type()):
		dst.Set(src.Convert(dst.Type()))
		return nil
	case src.Kind() == reflect.String && dst.Type() == timeType:
		t, err := time.Parse(time.RFC3339Nano, src.String())
		if err != nil {
			return err //nolint:wrapcheck // wrapped by Decode
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}

// assignNumber stores v in the numeric dst. Fractions, negative values for
// unsigned fields and values out of dst's range are rejected.
func assignNumber(dst reflect.Value, v any) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := asInt(v)
		if !ok || dst.OverflowInt(n) {
			return fmt.Errorf("%v does not fit in %s", v, dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var u uint64
		if src := reflect.ValueOf(v); src.CanUint() {
			u = src.Uint()
		} else if n, ok := asInt(v); ok && n >= 0 {
			u = uint64(n)
		} else {
			return fmt.Errorf("%v does not fit in %s", v, dst.Type())
		}
		if dst.OverflowUint(u) {
			return fmt.Errorf("%v does not fit in %s", v, dst.Type())
		}
		dst.SetUint(u)
	default:
		f, _ := asFloat(v)
		if dst.OverflowFloat(f) {
			return fmt.Errorf("%v does not fit in %s", v, dst.Type())
		}
		dst.SetFloat(f)
	}
	return nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
