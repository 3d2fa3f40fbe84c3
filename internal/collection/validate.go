package collection

import (
	"fmt"

	"github.com/roach88/lazyset/internal/model"
	"github.com/roach88/lazyset/internal/queryir"
)

// validateDescriptor rejects descriptors that could not compile to a
// well-formed query, so that membership resolution only ever fails on the
// candidate or the store.
func validateDescriptor(d Descriptor, t *model.EntityType) error {
	if d.Limit < 0 {
		return fmt.Errorf("negative limit %d", d.Limit)
	}

	columns := func(name string) bool { return t.HasColumn(name) }
	if err := checkPredicate("filter", d.Filter, columns); err != nil {
		return err
	}
	for _, ex := range d.Exclude {
		if ex == nil {
			return fmt.Errorf("exclude: nil predicate")
		}
		if err := checkPredicate("exclude", ex, columns); err != nil {
			return err
		}
	}

	if err := checkFieldList("values", d.Values, t); err != nil {
		return err
	}
	if err := checkFieldList("group by", d.GroupBy, t); err != nil {
		return err
	}

	if len(d.GroupBy) == 0 {
		if len(d.Aggregates) > 0 {
			return fmt.Errorf("aggregates require group by")
		}
		if d.Having != nil {
			return fmt.Errorf("having requires group by")
		}
		for _, term := range d.OrderBy {
			if !t.HasColumn(term.Field) {
				return fmt.Errorf("order by: unknown field %q", term.Field)
			}
		}
		return nil
	}

	if len(d.Values) > 0 {
		return fmt.Errorf("values cannot be combined with group by")
	}

	grouped := make(map[string]bool, len(d.GroupBy)+len(d.Aggregates))
	for _, f := range d.GroupBy {
		grouped[f] = true
	}
	for _, agg := range d.Aggregates {
		if !queryir.ValidAggregates[agg.Func] {
			return fmt.Errorf("aggregate %q: unsupported function %q", agg.Alias, agg.Func)
		}
		if agg.Field == "*" {
			if agg.Func != queryir.AggCount {
				return fmt.Errorf("aggregate %q: %s(*) is only valid for COUNT", agg.Alias, agg.Func)
			}
		} else if !t.HasColumn(agg.Field) {
			return fmt.Errorf("aggregate %q: unknown field %q", agg.Alias, agg.Field)
		}
		if agg.Alias == "" {
			return fmt.Errorf("aggregate %s(%s): alias is required", agg.Func, agg.Field)
		}
		if t.HasColumn(agg.Alias) {
			return fmt.Errorf("aggregate alias %q collides with a field", agg.Alias)
		}
		if grouped[agg.Alias] {
			return fmt.Errorf("duplicate aggregate alias %q", agg.Alias)
		}
		grouped[agg.Alias] = true
	}

	output := func(name string) bool { return grouped[name] }
	if err := checkPredicate("having", d.Having, output); err != nil {
		return err
	}
	for _, term := range d.OrderBy {
		if !grouped[term.Field] {
			return fmt.Errorf("order by: %q is not a group field or aggregate", term.Field)
		}
	}
	return nil
}

func checkFieldList(clause string, fields []string, t *model.EntityType) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !t.HasColumn(f) {
			return fmt.Errorf("%s: unknown field %q", clause, f)
		}
		if seen[f] {
			return fmt.Errorf("%s: duplicate field %q", clause, f)
		}
		seen[f] = true
	}
	return nil
}

// checkPredicate walks p and checks every referenced field. Bound
// variables are reserved for existence queries.
func checkPredicate(clause string, p queryir.Predicate, known func(string) bool) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case queryir.Equals:
		return checkField(clause, pred.Field, known)
	case *queryir.Equals:
		return checkField(clause, pred.Field, known)
	case queryir.NotEquals:
		return checkField(clause, pred.Field, known)
	case *queryir.NotEquals:
		return checkField(clause, pred.Field, known)
	case queryir.BoundEquals, *queryir.BoundEquals:
		return fmt.Errorf("%s: bound variables are not allowed", clause)
	case queryir.And:
		return checkAll(clause, pred.Predicates, known)
	case *queryir.And:
		return checkAll(clause, pred.Predicates, known)
	case queryir.Not:
		return checkPredicate(clause, pred.Predicate, known)
	case *queryir.Not:
		return checkPredicate(clause, pred.Predicate, known)
	default:
		return fmt.Errorf("%s: unsupported predicate %T", clause, p)
	}
}

func checkAll(clause string, preds []queryir.Predicate, known func(string) bool) error {
	for _, sub := range preds {
		if err := checkPredicate(clause, sub, known); err != nil {
			return err
		}
	}
	return nil
}

func checkField(clause, field string, known func(string) bool) error {
	if !known(field) {
		return fmt.Errorf("%s: unknown field %q", clause, field)
	}
	return nil
}
