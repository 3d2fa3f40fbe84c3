package collection

import (
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/model"
)

// Shape tags what a materialized result cache holds.
type Shape int

const (
	ShapeFullEntities Shape = iota
	ShapeProjected
	ShapeGrouped
)

func (s Shape) String() string {
	switch s {
	case ShapeFullEntities:
		return "full_entities"
	case ShapeProjected:
		return "projected"
	case ShapeGrouped:
		return "grouped"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ResultCache is the materialized result of one collection instance.
// It is immutable once built.
//
// A FullEntities cache indexes its records by a murmur3 hash of the
// canonical key encoding. The index only narrows the scan; candidates in a
// bucket are compared with ir.Equal, so lookups agree with a linear scan.
type ResultCache struct {
	shape   Shape
	records []*model.Record
	rows    []ir.IRObject
	index   map[uint64][]int
}

func newEntityCache(records []*model.Record) *ResultCache {
	c := &ResultCache{
		shape:   ShapeFullEntities,
		records: records,
		index:   make(map[uint64][]int, len(records)),
	}
	for i, rec := range records {
		key, ok := rec.IdentityKey()
		if !ok {
			continue
		}
		if h, ok := keyHash(key); ok {
			c.index[h] = append(c.index[h], i)
		}
	}
	return c
}

func newRowCache(shape Shape, rows []ir.IRObject) *ResultCache {
	return &ResultCache{shape: shape, rows: rows}
}

// Shape returns the cache's shape tag.
func (c *ResultCache) Shape() Shape {
	return c.shape
}

// Len returns the number of materialized rows.
func (c *ResultCache) Len() int {
	if c.shape == ShapeFullEntities {
		return len(c.records)
	}
	return len(c.rows)
}

// Records returns the materialized entities of a FullEntities cache and
// nil for other shapes.
func (c *ResultCache) Records() []*model.Record {
	return c.records
}

// Rows returns every row as an object. Entity rows include their key
// under keyColumn.
func (c *ResultCache) Rows(keyColumn string) []ir.IRObject {
	if c.shape != ShapeFullEntities {
		return c.rows
	}
	out := make([]ir.IRObject, len(c.records))
	for i, rec := range c.records {
		obj := rec.Fields.Clone()
		if obj == nil {
			obj = ir.IRObject{}
		}
		obj[keyColumn] = rec.Key
		out[i] = obj
	}
	return out
}

// FindByIdentity reports whether a materialized entity has key.
// Only a FullEntities cache can answer; other shapes always return false
// and callers must not ask them.
func (c *ResultCache) FindByIdentity(key ir.IRValue) bool {
	if c.shape != ShapeFullEntities {
		return false
	}
	h, ok := keyHash(key)
	if !ok {
		return false
	}
	for _, i := range c.index[h] {
		if k, _ := c.records[i].IdentityKey(); ir.Equal(k, key) {
			return true
		}
	}
	return false
}

// scan is the linear reference FindByIdentity must agree with.
func (c *ResultCache) scan(key ir.IRValue) bool {
	if c.shape != ShapeFullEntities {
		return false
	}
	for _, rec := range c.records {
		if k, ok := rec.IdentityKey(); ok && ir.Equal(k, key) {
			return true
		}
	}
	return false
}

func keyHash(key ir.IRValue) (uint64, bool) {
	b, err := ir.MarshalCanonical(key)
	if err != nil {
		return 0, false
	}
	return murmur3.Sum64(b), true
}
