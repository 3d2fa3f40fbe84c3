package model

import (
	"fmt"
	"sort"

	"github.com/roach88/lazyset/internal/ir"
)

// FieldKind is the storage kind of a field. Floats are not representable.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindInt    FieldKind = "int"
	KindBool   FieldKind = "bool"
)

// SQLType returns the SQLite column type for the kind.
func (k FieldKind) SQLType() string {
	switch k {
	case KindInt, KindBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// Decode converts a scanned column value to an IRValue of this kind.
// SQLite stores booleans as integers, so they are converted back here.
func (k FieldKind) Decode(v any) (ir.IRValue, error) {
	val, err := ir.FromSQL(v)
	if err != nil {
		return nil, err
	}
	if k == KindBool {
		if n, ok := val.(ir.IRInt); ok {
			return ir.IRBool(n != 0), nil
		}
	}
	return val, nil
}

// Accepts reports whether v is a value of this kind. SQLite coerces
// between kinds on comparison, so callers check this before a lookup.
func (k FieldKind) Accepts(v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRString:
		return k == KindString
	case ir.IRInt:
		return k == KindInt
	case ir.IRBool:
		return k == KindBool
	default:
		return false
	}
}

// Field describes one stored column.
type Field struct {
	Name       string
	Kind       FieldKind
	Nullable   bool
	References string // entity type this field points at, if any
}

// EntityType describes a registered type. For proxies Table, Key, KeyKind
// and Fields are copied from the target when the registry is built.
type EntityType struct {
	Name    string
	Table   string
	Key     string    // primary key column, "id" by default
	KeyKind FieldKind // kind of the primary key, int by default
	Fields  []Field   // non-key fields, sorted by name; inherited fields first for children
	ProxyOf string
	Parent  string
}

// IsProxy reports whether the type is a transparent proxy.
func (t *EntityType) IsProxy() bool {
	return t.ProxyOf != ""
}

// IsChild reports whether the type uses multi-table inheritance.
func (t *EntityType) IsChild() bool {
	return t.Parent != ""
}

// Source is the table or view collections of this type read from.
func (t *EntityType) Source() string {
	if t.IsChild() {
		return t.Table + "_v"
	}
	return t.Table
}

// PointerColumn is the column of a child table that holds the parent key.
func (t *EntityType) PointerColumn(parent *EntityType) string {
	return parent.Table + "_ptr"
}

// Field looks up a non-key field by name.
func (t *EntityType) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasColumn reports whether name is the key or a field of the type.
func (t *EntityType) HasColumn(name string) bool {
	if name == t.Key {
		return true
	}
	_, ok := t.Field(name)
	return ok
}

// KindOf returns the kind of the key or a field.
func (t *EntityType) KindOf(name string) (FieldKind, bool) {
	if name == t.Key {
		return t.KeyKind, true
	}
	f, ok := t.Field(name)
	return f.Kind, ok
}

// Columns returns the key followed by every field name.
func (t *EntityType) Columns() []string {
	cols := make([]string, 0, len(t.Fields)+1)
	cols = append(cols, t.Key)
	for _, f := range t.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// Coerce checks a value against the declared kind of a column.
// Null is accepted for nullable fields only.
func (t *EntityType) Coerce(column string, v ir.IRValue) (ir.IRValue, error) {
	kind, ok := t.KindOf(column)
	if !ok {
		return nil, fmt.Errorf("%s has no field %q", t.Name, column)
	}

	switch val := v.(type) {
	case nil, ir.IRNull:
		if f, isField := t.Field(column); isField && f.Nullable {
			return ir.IRNull{}, nil
		}
		return nil, fmt.Errorf("%s.%s is not nullable", t.Name, column)
	case ir.IRString:
		if kind == KindString {
			return val, nil
		}
	case ir.IRInt:
		if kind == KindInt {
			return val, nil
		}
	case ir.IRBool:
		if kind == KindBool {
			return val, nil
		}
	}
	return nil, fmt.Errorf("%s.%s: %T is not a %s", t.Name, column, v, kind)
}

func sortFields(fields []Field) {
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
}
