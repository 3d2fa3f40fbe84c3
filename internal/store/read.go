package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/model"
)

// Get loads one record of typeName by key. The record carries typeName
// even when it is read through a proxy's storage.
// Returns ErrNotFound when no row matches.
func (s *Store) Get(ctx context.Context, reg *model.Registry, typeName string, key ir.IRValue) (*model.Record, error) {
	t, ok := reg.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("get: unknown entity type %q", typeName)
	}
	param, err := ir.ToParam(key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", typeName, err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s COLLATE BINARY ASC",
		strings.Join(t.Columns(), ", "), t.Source(), t.Key, t.Key)
	rows, err := s.Query(ctx, query, param)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", typeName, err)
	}
	defer rows.Close()

	records, err := ScanRecords(rows, t, typeName)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", typeName, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("get %s(%v): %w", typeName, param, ErrNotFound)
	}
	return records[0], nil
}

// ScanRecords reads full entity rows. Columns are matched by name, so the
// select list may be in any order, but it must include the key.
func ScanRecords(rows *sql.Rows, t *model.EntityType, typeName string) ([]*model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	kinds, err := columnKinds(cols, func(c string) (model.FieldKind, bool) { return t.KindOf(c) })
	if err != nil {
		return nil, err
	}
	keyIdx := -1
	for i, c := range cols {
		if c == t.Key {
			keyIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("result has no key column %q", t.Key)
	}

	var out []*model.Record
	for rows.Next() {
		values, err := scanRow(rows, cols, kinds)
		if err != nil {
			return nil, err
		}
		rec := &model.Record{Type: typeName, Fields: make(ir.IRObject, len(cols)-1)}
		for i, c := range cols {
			if i == keyIdx {
				rec.Key = values[i]
				continue
			}
			rec.Fields[c] = values[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ScanObjects reads arbitrary rows into objects keyed by column name.
// kindOf reports the declared kind of a column; columns it does not know
// (aggregates, for instance) are decoded without a kind hint.
func ScanObjects(rows *sql.Rows, kindOf func(string) (model.FieldKind, bool)) ([]ir.IRObject, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	kinds := make([]model.FieldKind, len(cols))
	for i, c := range cols {
		if k, ok := kindOf(c); ok {
			kinds[i] = k
		}
	}

	var out []ir.IRObject
	for rows.Next() {
		values, err := scanRow(rows, cols, kinds)
		if err != nil {
			return nil, err
		}
		obj := make(ir.IRObject, len(cols))
		for i, c := range cols {
			obj[c] = values[i]
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

func columnKinds(cols []string, kindOf func(string) (model.FieldKind, bool)) ([]model.FieldKind, error) {
	kinds := make([]model.FieldKind, len(cols))
	for i, c := range cols {
		k, ok := kindOf(c)
		if !ok {
			return nil, fmt.Errorf("unexpected column %q", c)
		}
		kinds[i] = k
	}
	return kinds, nil
}

func scanRow(rows *sql.Rows, cols []string, kinds []model.FieldKind) ([]ir.IRValue, error) {
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	values := make([]ir.IRValue, len(cols))
	for i, v := range raw {
		var (
			val ir.IRValue
			err error
		)
		if kinds[i] != "" {
			val, err = kinds[i].Decode(v)
		} else {
			val, err = ir.FromSQL(v)
		}
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cols[i], err)
		}
		values[i] = val
	}
	return values, nil
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
