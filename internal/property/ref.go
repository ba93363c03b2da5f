package property

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Record is implemented by every collection document.
type Record interface {
	RecordID() string
}

// Ref is a relation field that arrives either as a bare identifier or as the
// embedded related document, depending on whether the query populated it.
type Ref[T Record] struct {
	id  string
	doc *T
}

// RefID builds an unpopulated relation.
func RefID[T Record](id string) Ref[T] {
	return Ref[T]{id: strings.TrimSpace(id)}
}

// Embed builds a populated relation.
func Embed[T Record](doc T) Ref[T] {
	return Ref[T]{id: doc.RecordID(), doc: &doc}
}

// ID resolves the related identifier for either representation.
func (r Ref[T]) ID() string {
	if r.doc != nil {
		return (*r.doc).RecordID()
	}
	return r.id
}

// Doc returns the embedded document when the relation was populated.
func (r Ref[T]) Doc() (T, bool) {
	if r.doc == nil {
		var zero T
		return zero, false
	}
	return *r.doc, true
}

// IsEmbedded reports whether the relation carries the full document.
func (r Ref[T]) IsEmbedded() bool {
	return r.doc != nil
}

// IsNull reports an unset relation.
func (r Ref[T]) IsNull() bool {
	return r.doc == nil && r.id == ""
}

// Name extracts a display field from the embedded document. ok is false for raw ids.
func (r Ref[T]) Name(field func(T) string) (string, bool) {
	if r.doc == nil || field == nil {
		return "", false
	}
	return field(*r.doc), true
}

// Label renders the embedded display field or "<prefix> ID: <id>" for raw ids.
func (r Ref[T]) Label(prefix string, field func(T) string) string {
	if name, ok := r.Name(field); ok {
		return name
	}
	if r.IsNull() {
		return "Unknown"
	}
	if prefix == "" {
		return "ID: " + r.id
	}
	return prefix + " ID: " + r.id
}

// MarshalJSON writes the embedded document, the raw id, or null.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.doc != nil {
		return json.Marshal(*r.doc)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

var errRefShape = errors.New("property: relation must be an id or an object")

// ID is a record identifier. SQL-backed collections emit numbers and the rest
// emit strings; both decode to the same text form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return errRefShape
	}
	*id = ID(num.String())
	return nil
}

// UnmarshalJSON accepts a string id, a numeric id, an object, or null.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Ref[T]{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '{':
		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		r.doc = &doc
		r.id = doc.RecordID()
		return nil
	default:
		var id ID
		if err := id.UnmarshalJSON(data); err != nil {
			return err
		}
		r.id = string(id)
		return nil
	}
}
