package model

import (
	"fmt"

	"github.com/roach88/lazyset/internal/ir"
)

// Entity is anything that can be asked about collection membership.
//
// IdentityKey returns false for an entity that was never persisted.
type Entity interface {
	EntityType() string
	IdentityKey() (ir.IRValue, bool)
}

// Record is the concrete Entity produced by materialization and fixtures.
type Record struct {
	Type   string
	Key    ir.IRValue // nil or IRNull until persisted
	Fields ir.IRObject
}

// NewRecord returns an unpersisted record.
func NewRecord(typeName string, fields ir.IRObject) *Record {
	if fields == nil {
		fields = ir.IRObject{}
	}
	return &Record{Type: typeName, Fields: fields}
}

// EntityType implements Entity.
func (r Record) EntityType() string {
	return r.Type
}

// IdentityKey implements Entity.
func (r Record) IdentityKey() (ir.IRValue, bool) {
	if r.Key == nil {
		return nil, false
	}
	if _, isNull := r.Key.(ir.IRNull); isNull {
		return nil, false
	}
	return r.Key, true
}

// Get returns a field value, or IRNull if the field is absent.
func (r Record) Get(field string) ir.IRValue {
	if v, ok := r.Fields[field]; ok {
		return v
	}
	return ir.IRNull{}
}

// As returns a copy of the record viewed as another type, as when a proxy
// type loads the same row.
func (r Record) As(typeName string) *Record {
	return &Record{Type: typeName, Key: r.Key, Fields: r.Fields.Clone()}
}

func (r Record) String() string {
	if key, ok := r.IdentityKey(); ok {
		b, err := ir.MarshalIRValue(key)
		if err == nil {
			return fmt.Sprintf("%s(%s)", r.Type, b)
		}
	}
	return fmt.Sprintf("%s(unsaved)", r.Type)
}
