package collection

import (
	"fmt"
	"strings"

	"github.com/roach88/lazyset/internal/queryir"
)

// Spec is the textual form of a Descriptor used by scenario files and the
// CLI. Predicates use the queryir.ParseFilter syntax; an order term
// prefixed with "-" sorts descending.
type Spec struct {
	Type       string          `yaml:"type"`
	Filter     string          `yaml:"filter,omitempty"`
	Exclude    []string        `yaml:"exclude,omitempty"`
	Values     []string        `yaml:"values,omitempty"`
	GroupBy    []string        `yaml:"group_by,omitempty"`
	Aggregates []AggregateSpec `yaml:"aggregates,omitempty"`
	Having     string          `yaml:"having,omitempty"`
	OrderBy    []string        `yaml:"order_by,omitempty"`
	Limit      int             `yaml:"limit,omitempty"`
}

// AggregateSpec is one aggregate column, e.g. {func: COUNT, field: "*", alias: n}.
type AggregateSpec struct {
	Func  string `yaml:"func"`
	Field string `yaml:"field"`
	Alias string `yaml:"alias"`
}

// Descriptor parses the spec. Field names are checked later, by New.
func (s Spec) Descriptor() (Descriptor, error) {
	if s.Type == "" {
		return Descriptor{}, fmt.Errorf("type is required")
	}

	d := Descriptor{
		Type:    s.Type,
		Values:  s.Values,
		GroupBy: s.GroupBy,
		Limit:   s.Limit,
	}

	var err error
	if d.Filter, err = queryir.ParseFilter(s.Filter); err != nil {
		return Descriptor{}, fmt.Errorf("filter: %w", err)
	}
	for i, ex := range s.Exclude {
		pred, err := queryir.ParseFilter(ex)
		if err != nil {
			return Descriptor{}, fmt.Errorf("exclude[%d]: %w", i, err)
		}
		if pred == nil {
			return Descriptor{}, fmt.Errorf("exclude[%d]: empty expression", i)
		}
		d.Exclude = append(d.Exclude, pred)
	}
	if d.Having, err = queryir.ParseFilter(s.Having); err != nil {
		return Descriptor{}, fmt.Errorf("having: %w", err)
	}

	for _, agg := range s.Aggregates {
		d.Aggregates = append(d.Aggregates, queryir.Aggregate{
			Func:  queryir.AggregateFunc(strings.ToUpper(agg.Func)),
			Field: agg.Field,
			Alias: agg.Alias,
		})
	}

	for _, term := range s.OrderBy {
		field, desc := strings.CutPrefix(term, "-")
		if field == "" {
			return Descriptor{}, fmt.Errorf("order_by: empty term")
		}
		d.OrderBy = append(d.OrderBy, queryir.OrderTerm{Field: field, Desc: desc})
	}
	return d, nil
}
