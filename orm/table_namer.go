package orm

import (
	"reflect"

	"github.com/jinzhu/inflection"

	"github.com/mickamy/hasone/internal/naming"
)

// TableNamer can be implemented by model structs to override the
// auto-derived table name.
type TableNamer interface {
	TableName() string
}

// TableNameFor returns the table name for struct type T.
// If T implements TableNamer (value or pointer receiver), that name is used;
// otherwise the snake_case plural of the type name is returned,
// e.g. "UserProfile" -> "user_profiles".
func TableNameFor[T any]() string {
	var zero T
	if tn, ok := any(&zero).(TableNamer); ok {
		return tn.TableName()
	}
	return inflection.Plural(naming.CamelToSnake(reflect.TypeOf(zero).Name()))
}

// CreateModelFor creates the model for struct type T, named by TableNameFor.
func CreateModelFor[T any](m *Modeller) *Model {
	return m.CreateModel(TableNameFor[T]())
}
