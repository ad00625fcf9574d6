package utils

import (
	"reflect"
)

var ColumnTag = "db"

// Columns returns the db tag of every exported field, in declaration order.
// Embedded structs are flattened.
func Columns(input any) []string {
	t := structType(input)

	result := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			result = append(result, Columns(reflect.New(field.Type).Elem().Interface())...)
			continue
		}

		if column, ok := columnName(field); ok {
			result = append(result, column)
		}
	}

	return result
}

// ColumnMap maps every tagged field of input to its value. Used for inserts.
func ColumnMap(input any) map[string]any {
	v := structValue(input)
	t := v.Type()

	result := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if column, ok := columnName(t.Field(i)); ok {
			result[column] = v.Field(i).Interface()
		}
	}

	return result
}

// UpdateMap maps the non-nil pointer fields of a partial update struct to
// their dereferenced values. Non-pointer fields are always included.
func UpdateMap(input any) map[string]any {
	v := structValue(input)
	t := v.Type()

	result := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		column, ok := columnName(t.Field(i))
		if !ok {
			continue
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}

		result[column] = fv.Interface()
	}

	return result
}

// PrefixColumns qualifies each column with a table alias.
func PrefixColumns(prefix string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = prefix + "." + c
	}
	return out
}

func columnName(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false
	}

	tag := field.Tag.Get(ColumnTag)
	if tag == "" || tag == "-" {
		return "", false
	}

	return tag, true
}

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func structType(input any) reflect.Type {
	return structValue(input).Type()
}
