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

// ErrSchemaMismatch is returned when a database was created for different
// entity definitions than the registry being applied.
var ErrSchemaMismatch = errors.New("entity definitions differ from the database catalog")

// SchemaStatements returns the DDL creating every table and view of reg,
// parents before children.
func SchemaStatements(reg *model.Registry) ([]string, error) {
	var stmts []string
	for _, t := range reg.StorageTypes() {
		tableSQL, err := createTable(reg, t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, tableSQL)

		if t.IsChild() {
			viewSQL, err := createView(reg, t)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, viewSQL)
		}
	}
	return stmts, nil
}

// EnsureEntities creates missing tables and views for reg and records the
// registry in the catalog. Applying the same registry twice is a no-op;
// applying a registry whose definitions differ from the catalog fails with
// ErrSchemaMismatch.
func (s *Store) EnsureEntities(ctx context.Context, reg *model.Registry) error {
	stmts, err := SchemaStatements(reg)
	if err != nil {
		return fmt.Errorf("ensure entities: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure entities: begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkCatalog(ctx, tx, reg); err != nil {
		return err
	}

	for _, stmt := range stmts {
		if err := s.execTx(ctx, tx, stmt); err != nil {
			return fmt.Errorf("ensure entities: %w", err)
		}
	}

	for _, name := range reg.Names() {
		t, _ := reg.Lookup(name)
		class, _ := reg.Class(name)
		hash, err := definitionHash(t, class)
		if err != nil {
			return fmt.Errorf("ensure entities: %w", err)
		}
		if err := s.execTx(ctx, tx, `
			INSERT INTO lazyset_entity_types (name, class, source, definition_hash)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO NOTHING
		`, name, class, t.Source(), hash); err != nil {
			return fmt.Errorf("ensure entities: catalog %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ensure entities: commit: %w", err)
	}
	return nil
}

// checkCatalog compares reg against rows already in the catalog.
func (s *Store) checkCatalog(ctx context.Context, tx *sql.Tx, reg *model.Registry) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT name, definition_hash FROM lazyset_entity_types
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, stored string
		if err := rows.Scan(&name, &stored); err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		t, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		class, _ := reg.Class(name)
		hash, err := definitionHash(t, class)
		if err != nil {
			return err
		}
		if hash != stored {
			return fmt.Errorf("%w: %s", ErrSchemaMismatch, name)
		}
	}
	return rows.Err()
}

// CatalogEntry is one row of the entity type catalog.
type CatalogEntry struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	Source string `json:"source"`
}

// Catalog lists the entity types the database was created for.
func (s *Store) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := s.Query(ctx, `
		SELECT name, class, source FROM lazyset_entity_types
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer rows.Close()

	var out []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.Name, &e.Class, &e.Source); err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) execTx(ctx context.Context, tx *sql.Tx, stmt string, args ...any) error {
	return s.track(KindExec, stmt, args, func() error {
		_, err := tx.ExecContext(ctx, stmt, args...)
		return err
	})
}

func createTable(reg *model.Registry, t *model.EntityType) (string, error) {
	var cols []string
	fields := t.Fields

	if t.IsChild() {
		parent, ok := reg.Lookup(t.Parent)
		if !ok {
			return "", fmt.Errorf("%s: unknown parent %q", t.Name, t.Parent)
		}
		parentTable, parentKey := keyColumn(reg, parent)
		cols = append(cols, fmt.Sprintf("%s %s PRIMARY KEY NOT NULL REFERENCES %s(%s) ON DELETE CASCADE",
			t.PointerColumn(parent), t.KeyKind.SQLType(), parentTable, parentKey))
		fields = ownFields(t, parent)
	} else {
		cols = append(cols, fmt.Sprintf("%s %s PRIMARY KEY NOT NULL", t.Key, t.KeyKind.SQLType()))
	}

	for _, f := range fields {
		col := f.Name + " " + f.Kind.SQLType()
		if !f.Nullable {
			col += " NOT NULL"
		}
		if f.References != "" {
			target, ok := reg.Lookup(f.References)
			if !ok {
				return "", fmt.Errorf("%s.%s: unknown reference %q", t.Name, f.Name, f.References)
			}
			refTable, refKey := keyColumn(reg, target)
			col += fmt.Sprintf(" REFERENCES %s(%s)", refTable, refKey)
		}
		cols = append(cols, col)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Table, strings.Join(cols, ", ")), nil
}

// createView joins a child table to its parent's source so the child reads
// like a single table with the inherited key and fields.
func createView(reg *model.Registry, t *model.EntityType) (string, error) {
	parent, ok := reg.Lookup(t.Parent)
	if !ok {
		return "", fmt.Errorf("%s: unknown parent %q", t.Name, t.Parent)
	}

	var cols []string
	for _, c := range parent.Columns() {
		cols = append(cols, fmt.Sprintf("p.%s AS %s", c, c))
	}
	for _, f := range ownFields(t, parent) {
		cols = append(cols, fmt.Sprintf("c.%s AS %s", f.Name, f.Name))
	}

	return fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS SELECT %s FROM %s AS p JOIN %s AS c ON c.%s = p.%s",
		t.Source(), strings.Join(cols, ", "), parent.Source(), t.Table, t.PointerColumn(parent), parent.Key), nil
}

// keyColumn returns the physical table and column holding t's key.
func keyColumn(reg *model.Registry, t *model.EntityType) (string, string) {
	if class, ok := reg.Class(t.Name); ok && class != t.Name {
		t, _ = reg.Lookup(class)
	}
	if t.IsChild() {
		parent, _ := reg.Lookup(t.Parent)
		return t.Table, t.PointerColumn(parent)
	}
	return t.Table, t.Key
}

// ownFields returns the fields a child declares itself.
func ownFields(t, parent *model.EntityType) []model.Field {
	var own []model.Field
	for _, f := range t.Fields {
		if !parent.HasColumn(f.Name) {
			own = append(own, f)
		}
	}
	return own
}

func definitionHash(t *model.EntityType, class string) (string, error) {
	fields := make(ir.IRArray, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = ir.IRObject{
			"name":       ir.IRString(f.Name),
			"kind":       ir.IRString(string(f.Kind)),
			"nullable":   ir.IRBool(f.Nullable),
			"references": ir.IRString(f.References),
		}
	}
	return ir.DefinitionDigest(ir.IRObject{
		"name":     ir.IRString(t.Name),
		"class":    ir.IRString(class),
		"table":    ir.IRString(t.Table),
		"key":      ir.IRString(t.Key),
		"key_kind": ir.IRString(string(t.KeyKind)),
		"proxy_of": ir.IRString(t.ProxyOf),
		"parent":   ir.IRString(t.Parent),
		"fields":   fields,
	})
}
