package model

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileEntity parses a CUE value into an EntityType declaration.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the entity struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: ObjectA: { table: "object_a" }`)
//	decl, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.ObjectA")))
//
// The result is a declaration; NewRegistry resolves defaults and
// inheritance.
func CompileEntity(v cue.Value) (*EntityType, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	decl := &EntityType{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		decl.Name = labels[len(labels)-1].String()
	}

	var err error
	if decl.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if decl.Key, err = optionalString(v, "pk"); err != nil {
		return nil, err
	}
	if decl.ProxyOf, err = optionalString(v, "proxy_of"); err != nil {
		return nil, err
	}
	if decl.Parent, err = optionalString(v, "parent"); err != nil {
		return nil, err
	}

	refs, err := parseReferences(v)
	if err != nil {
		return nil, err
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if fieldsVal.Exists() {
		iter, err := fieldsVal.Fields(cue.Optional(true))
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name := iter.Label()
			kind, err := extractKind(iter.Value())
			if err != nil {
				return nil, err
			}
			if name == decl.Key || (decl.Key == "" && name == "id") {
				decl.KeyKind = kind
				continue
			}
			decl.Fields = append(decl.Fields, Field{
				Name:       name,
				Kind:       kind,
				Nullable:   iter.IsOptional(),
				References: refs[name],
			})
			delete(refs, name)
		}
	}

	if len(refs) > 0 {
		missing := make([]string, 0, len(refs))
		for name := range refs {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		return nil, &CompileError{
			Field:   "references",
			Message: fmt.Sprintf("references undeclared fields %v", missing),
			Pos:     v.Pos(),
		}
	}

	sortFields(decl.Fields)
	return decl, nil
}

// CompileModels compiles every entity under the top-level "entity" field
// and resolves them into a Registry.
func CompileModels(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &CompileError{Field: "entity", Message: "no entity types declared", Pos: v.Pos()}
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []EntityType
	for iter.Next() {
		decl, err := CompileEntity(iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, *decl)
	}

	return NewRegistry(decls...)
}

func parseReferences(v cue.Value) (map[string]string, error) {
	refs := make(map[string]string)
	refsVal := v.LookupPath(cue.ParsePath("references"))
	if !refsVal.Exists() {
		return refs, nil
	}

	iter, err := refsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		target, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		refs[iter.Label()] = target
	}
	return refs, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", &CompileError{
			Field:   path,
			Message: "must be a string",
			Pos:     val.Pos(),
		}
	}
	return s, nil
}

// extractKind converts a CUE type to a FieldKind. Floats are forbidden.
func extractKind(v cue.Value) (FieldKind, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return KindString, nil
	case cue.IntKind:
		return KindInt, nil
	case cue.BoolKind:
		return KindBool, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a model error with an optional source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
