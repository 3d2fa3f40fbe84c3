package model

import (
	"errors"
	"fmt"
	"sort"
)

// Registry holds resolved entity types and answers compatibility questions.
// A Registry is immutable after NewRegistry returns and safe for concurrent
// reads.
type Registry struct {
	types   map[string]*EntityType
	classes map[string]string
	order   []string // storage-owning types, parents before children
}

// NewRegistry validates and resolves a set of entity type declarations.
//
// Resolution fills defaults (key "id" of kind int), copies storage details
// from proxy targets, and prepends inherited fields to child types.
func NewRegistry(decls ...EntityType) (*Registry, error) {
	r := &Registry{
		types:   make(map[string]*EntityType, len(decls)),
		classes: make(map[string]string, len(decls)),
	}

	raw := make(map[string]EntityType, len(decls))
	for _, d := range decls {
		if d.Name == "" {
			return nil, &CompileError{Field: "entity", Message: "entity name is required"}
		}
		if _, dup := raw[d.Name]; dup {
			return nil, &CompileError{Field: "entity." + d.Name, Message: "duplicate entity type"}
		}
		raw[d.Name] = d
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	visiting := make(map[string]bool)
	var resolve func(name string) (*EntityType, error)
	resolve = func(name string) (*EntityType, error) {
		if t, ok := r.types[name]; ok {
			return t, nil
		}
		d, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("unknown entity type %q", name)
		}
		if visiting[name] {
			return nil, &CompileError{Field: "entity." + name, Message: "inheritance cycle"}
		}
		visiting[name] = true
		defer delete(visiting, name)

		t, err := r.resolveOne(d, resolve)
		if err != nil {
			return nil, err
		}
		r.types[name] = t
		if !t.IsProxy() {
			r.order = append(r.order, name)
		}
		return t, nil
	}

	for _, name := range names {
		if _, err := resolve(name); err != nil {
			return nil, err
		}
	}

	for _, name := range names {
		class, err := r.classOf(name)
		if err != nil {
			return nil, err
		}
		r.classes[name] = class
	}

	if err := r.checkStorage(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) resolveOne(d EntityType, resolve func(string) (*EntityType, error)) (*EntityType, error) {
	field := "entity." + d.Name
	t := d
	t.Fields = append([]Field(nil), d.Fields...)

	if t.IsProxy() && t.IsChild() {
		return nil, &CompileError{Field: field, Message: "proxy_of and parent are mutually exclusive"}
	}

	switch {
	case t.IsProxy():
		if t.Table != "" || len(t.Fields) > 0 {
			return nil, &CompileError{Field: field + ".proxy_of", Message: "a proxy cannot declare a table or fields"}
		}
		target, err := resolve(t.ProxyOf)
		if err != nil {
			return nil, wrapResolve(field+".proxy_of", err)
		}
		t.Table = target.Table
		t.Key = target.Key
		t.KeyKind = target.KeyKind
		t.Fields = append([]Field(nil), target.Fields...)
		if target.IsChild() {
			// reads go through the target's view
			t.Parent = target.Parent
		}
		return &t, nil

	case t.IsChild():
		if t.Table == "" {
			return nil, &CompileError{Field: field + ".table", Message: "table is required"}
		}
		parent, err := resolve(t.Parent)
		if err != nil {
			return nil, wrapResolve(field+".parent", err)
		}
		if parent.IsProxy() {
			return nil, &CompileError{Field: field + ".parent", Message: fmt.Sprintf("parent %q is a proxy", parent.Name)}
		}
		if t.Key != "" && t.Key != parent.Key {
			return nil, &CompileError{Field: field + ".pk", Message: "a child type inherits its parent's key"}
		}
		t.Key = parent.Key
		t.KeyKind = parent.KeyKind
		own := t.Fields
		sortFields(own)
		for _, f := range own {
			if parent.HasColumn(f.Name) {
				return nil, &CompileError{Field: field + ".fields." + f.Name, Message: "field shadows an inherited field"}
			}
		}
		t.Fields = append(append([]Field(nil), parent.Fields...), own...)

	default:
		if t.Table == "" {
			return nil, &CompileError{Field: field + ".table", Message: "table is required"}
		}
		if t.Key == "" {
			t.Key = "id"
		}
		if t.KeyKind == "" {
			t.KeyKind = KindInt
		}
		sortFields(t.Fields)
	}

	for _, f := range t.Fields {
		if f.Name == t.Key {
			return nil, &CompileError{Field: field + ".fields." + f.Name, Message: "field repeats the primary key"}
		}
		if f.References != "" {
			if _, ok := resolveKnown(f.References, resolve); !ok {
				return nil, &CompileError{Field: field + ".references." + f.Name, Message: fmt.Sprintf("unknown entity type %q", f.References)}
			}
		}
	}
	return &t, nil
}

// resolveKnown reports whether a referenced type exists. References may
// form cycles, so a type currently being resolved counts as known.
func resolveKnown(name string, resolve func(string) (*EntityType, error)) (*EntityType, bool) {
	t, err := resolve(name)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) && ce.Message == "inheritance cycle" {
			return nil, true
		}
		return nil, false
	}
	return t, true
}

func (r *Registry) classOf(name string) (string, error) {
	seen := make(map[string]bool)
	for {
		t, ok := r.types[name]
		if !ok {
			return "", fmt.Errorf("unknown entity type %q", name)
		}
		if !t.IsProxy() {
			return name, nil
		}
		if seen[name] {
			return "", &CompileError{Field: "entity." + name + ".proxy_of", Message: "proxy cycle"}
		}
		seen[name] = true
		name = t.ProxyOf
	}
}

// checkStorage rejects two storage-owning types sharing a table or view.
func (r *Registry) checkStorage() error {
	owner := make(map[string]string)
	for _, name := range r.order {
		t := r.types[name]
		names := []string{t.Table}
		if t.IsChild() {
			names = append(names, t.Source())
		}
		for _, n := range names {
			if other, taken := owner[n]; taken {
				return &CompileError{
					Field:   "entity." + name + ".table",
					Message: fmt.Sprintf("table %q is already used by %s", n, other),
				}
			}
			owner[n] = name
		}
	}
	return nil
}

// Lookup returns a registered type.
func (r *Registry) Lookup(name string) (*EntityType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Class returns the compatibility class of a registered type.
func (r *Registry) Class(name string) (string, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Compatible reports whether two registered types share a compatibility
// class. Unregistered types are never compatible.
func (r *Registry) Compatible(a, b string) bool {
	ca, okA := r.classes[a]
	cb, okB := r.classes[b]
	return okA && okB && ca == cb
}

// Names returns every registered type name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StorageTypes returns the types that own a table, parents before
// children.
func (r *Registry) StorageTypes() []*EntityType {
	out := make([]*EntityType, len(r.order))
	for i, name := range r.order {
		out[i] = r.types[name]
	}
	return out
}

func wrapResolve(field string, err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return err
	}
	return &CompileError{Field: field, Message: err.Error()}
}
