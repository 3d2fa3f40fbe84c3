package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/model"
)

// Insert persists rec and sets rec.Key when the database assigns it.
//
// A proxy record is written to its target's storage. A child record is
// written to every table of its inheritance chain, parent first, in one
// transaction. Fields are checked against the declared kinds; unknown
// fields and missing non-nullable fields are errors.
func (s *Store) Insert(ctx context.Context, reg *model.Registry, rec *model.Record) error {
	t, ok := reg.Lookup(rec.Type)
	if !ok {
		return fmt.Errorf("insert: unknown entity type %q", rec.Type)
	}
	class, _ := reg.Class(rec.Type)
	storage, _ := reg.Lookup(class)

	values, err := coerceFields(t, rec.Fields)
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.Type, err)
	}

	var key ir.IRValue
	if k, ok := rec.IdentityKey(); ok {
		if key, err = t.Coerce(t.Key, k); err != nil {
			return fmt.Errorf("insert %s: %w", rec.Type, err)
		}
	} else if t.KeyKind != model.KindInt {
		return fmt.Errorf("insert %s: a %s key must be supplied", rec.Type, t.KeyKind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert %s: begin: %w", rec.Type, err)
	}
	defer tx.Rollback()

	key, err = s.insertChain(ctx, tx, reg, storage, key, values)
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.Type, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert %s: commit: %w", rec.Type, err)
	}

	rec.Key = key
	rec.Fields = values
	return nil
}

// insertChain writes the part of values stored in t's own table, after
// writing the parent part when t is a child. Returns the key.
func (s *Store) insertChain(ctx context.Context, tx *sql.Tx, reg *model.Registry, t *model.EntityType, key ir.IRValue, values ir.IRObject) (ir.IRValue, error) {
	keyColumn := t.Key
	fields := t.Fields

	if t.IsChild() {
		parent, ok := reg.Lookup(t.Parent)
		if !ok {
			return nil, fmt.Errorf("unknown parent %q", t.Parent)
		}
		var err error
		if key, err = s.insertChain(ctx, tx, reg, parent, key, values); err != nil {
			return nil, err
		}
		keyColumn = t.PointerColumn(parent)
		fields = ownFields(t, parent)
	}

	var cols []string
	var args []any
	if key != nil {
		param, err := ir.ToParam(key)
		if err != nil {
			return nil, err
		}
		cols = append(cols, keyColumn)
		args = append(args, param)
	}
	for _, f := range fields {
		param, err := ir.ToParam(values[f.Name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		cols = append(cols, f.Name)
		args = append(args, param)
	}

	var stmt string
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", t.Table)
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			t.Table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	}

	var res sql.Result
	err := s.track(KindExec, stmt, args, func() error {
		var err error
		res, err = tx.ExecContext(ctx, stmt, args...)
		return err
	})
	if err != nil {
		return nil, err
	}

	if key == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		key = ir.IRInt(id)
	}
	return key, nil
}

// coerceFields checks every supplied field and fills absent nullable
// fields with null.
func coerceFields(t *model.EntityType, fields ir.IRObject) (ir.IRObject, error) {
	out := make(ir.IRObject, len(t.Fields))

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == t.Key {
			return nil, fmt.Errorf("key %q must be set as the record key, not a field", name)
		}
		if _, ok := t.Field(name); !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
	}

	for _, f := range t.Fields {
		v, ok := fields[f.Name]
		if !ok {
			if !f.Nullable {
				return nil, fmt.Errorf("missing field %q", f.Name)
			}
			v = ir.IRNull{}
		}
		coerced, err := t.Coerce(f.Name, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = coerced
	}
	return out, nil
}
