package queryir

import (
	"fmt"

	"github.com/roach88/lazyset/internal/ir"
)

// ValidationResult contains portability analysis of a query.
type ValidationResult struct {
	// IsPortable indicates if the query uses only portable fragment features.
	IsPortable bool

	// Warnings lists non-portable features used in the query.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks if a query conforms to the portable fragment rules.
//
// Portable fragment rules:
//  1. No NULLs - field comparisons must use explicit values
//  2. Set semantics - no aggregation or grouping
//  3. Explicit bindings - no SELECT * wildcards
//  4. No windows - LIMIT depends on ordering, which other backends may not share
//  5. No negation - NOT and <> have three-valued semantics over NULL
//
// Non-portable queries are allowed and execute correctly with the SQL
// backend. Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateQuery recursively validates a query node.
func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addWarning("nil query - portable fragment requires valid query nodes")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Exists:
		v.validateSelect(query.Source)
		v.validatePredicate(query.Match)
	case *Exists:
		v.validateSelect(query.Source)
		v.validatePredicate(query.Match)
	case GroupMember:
		v.validateSelect(query.Source)
		v.validatePredicate(query.Probe)
	case *GroupMember:
		v.validateSelect(query.Source)
		v.validatePredicate(query.Probe)
	default:
		v.addWarning("Unknown query type: %T - portability cannot be verified", q)
	}
}

// validateSelect validates a Select query node.
func (v *validator) validateSelect(sel Select) {
	if sel.Grouped() {
		v.addWarning("Grouping on %v - aggregation is outside the portable fragment", sel.GroupBy)
		if sel.Having != nil {
			v.validatePredicate(sel.Having)
		}
	} else if len(sel.Bindings) == 0 {
		v.addWarning("Empty bindings (SELECT *) - portable fragment requires explicit field selection")
	}

	if sel.Limit > 0 {
		v.addWarning("LIMIT %d - windowed results depend on backend ordering", sel.Limit)
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case Equals:
		v.validateLiteral(pred.Field, pred.Value)
	case *Equals:
		v.validateLiteral(pred.Field, pred.Value)
	case NotEquals:
		v.addWarning("Field '%s' compared with <> - negation is not portable", pred.Field)
		v.validateLiteral(pred.Field, pred.Value)
	case *NotEquals:
		v.addWarning("Field '%s' compared with <> - negation is not portable", pred.Field)
		v.validateLiteral(pred.Field, pred.Value)
	case BoundEquals, *BoundEquals:
		// Binding existence is checked at compile time, not during validation
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Not:
		v.addWarning("NOT predicate - negation is not portable")
		v.validatePredicate(pred.Predicate)
	case *Not:
		v.addWarning("NOT predicate - negation is not portable")
		v.validatePredicate(pred.Predicate)
	default:
		v.addWarning("Unknown predicate type: %T - portability cannot be verified", p)
	}
}

// validateLiteral flags NULL literals.
func (v *validator) validateLiteral(field string, value ir.IRValue) {
	if _, isNull := value.(ir.IRNull); isNull || value == nil {
		v.addWarning("Field '%s' compared to NULL - portable fragment requires explicit values", field)
	}
}
