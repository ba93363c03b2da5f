package property

import (
	"bytes"
	"encoding/json"
	"reflect"
	"time"
)

type nullable interface {
	IsNull() bool
}

var (
	timeType = reflect.TypeOf(time.Time{})
	rawType  = reflect.TypeOf(json.RawMessage{})
)

// completeness counts non-null scalar fields, descending into nested groups.
// Relations count once whether they carry an id or an embedded document.
// Empty strings count as null since a JSON null decodes to "".
func completeness(v any) int {
	return countPresent(reflect.ValueOf(v))
}

func countPresent(v reflect.Value) int {
	if !v.IsValid() {
		return 0
	}
	if v.CanInterface() {
		if n, ok := v.Interface().(nullable); ok {
			if v.Kind() == reflect.Pointer && v.IsNil() {
				return 0
			}
			if n.IsNull() {
				return 0
			}
			return 1
		}
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return countPresent(v.Elem())
	case reflect.String:
		if v.Len() == 0 {
			return 0
		}
		return 1
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return 0
		}
		if v.Type() == rawType && bytes.Equal(bytes.TrimSpace(v.Bytes()), []byte("null")) {
			return 0
		}
		return 1
	case reflect.Struct:
		if v.Type() == timeType {
			if v.Interface().(time.Time).IsZero() {
				return 0
			}
			return 1
		}
		total := 0
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			total += countPresent(v.Field(i))
		}
		return total
	default:
		return 1
	}
}
