package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/lazyset/internal/ir"
)

// ParseFilter parses a textual filter expression into a Predicate.
//
// Supported expression formats:
//   - "field == value" → Equals{Field: "field", Value: value}
//   - "field != value" → NotEquals{Field: "field", Value: value}
//   - "field == bound.var" → BoundEquals{Field: "field", BoundVar: "bound.var"}
//   - "expr1 AND expr2" → And{Predicates: [expr1, expr2]}
//
// Values: quoted strings, integers, true/false, null, or a bare word taken
// as a string. An empty expression yields a nil predicate.
func ParseFilter(filter string) (Predicate, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}

	andParts := splitByAnd(filter)
	if len(andParts) > 1 {
		predicates := make([]Predicate, 0, len(andParts))
		for _, part := range andParts {
			pred, err := ParseFilter(part)
			if err != nil {
				return nil, err
			}
			if pred != nil {
				predicates = append(predicates, pred)
			}
		}
		return Conjoin(predicates...), nil
	}

	return parseSingleComparison(filter)
}

// splitByAnd splits a filter expression by AND (case insensitive).
// Quoted literals containing " and " are not split.
func splitByAnd(filter string) []string {
	var parts []string
	var quote byte
	start := 0
	lower := strings.ToLower(filter)

	for i := 0; i < len(filter); i++ {
		c := filter[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case strings.HasPrefix(lower[i:], " and "):
			parts = append(parts, strings.TrimSpace(filter[start:i]))
			start = i + len(" and ")
			i = start - 1
		}
	}
	return append(parts, strings.TrimSpace(filter[start:]))
}

// parseSingleComparison parses one "field op value" comparison.
func parseSingleComparison(expr string) (Predicate, error) {
	var field, value string
	negated := false

	switch {
	case strings.Contains(expr, "!="):
		parts := strings.SplitN(expr, "!=", 2)
		field, value = parts[0], parts[1]
		negated = true
	case strings.Contains(expr, "=="):
		parts := strings.SplitN(expr, "==", 2)
		field, value = parts[0], parts[1]
	case strings.Contains(expr, "="):
		parts := strings.SplitN(expr, "=", 2)
		field, value = parts[0], parts[1]
	default:
		return nil, fmt.Errorf("unsupported expression (no == or != found): %s", expr)
	}

	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)
	if field == "" {
		return nil, fmt.Errorf("missing field name in: %s", expr)
	}
	if value == "" {
		return nil, fmt.Errorf("missing value in: %s", expr)
	}

	if strings.HasPrefix(value, "bound.") {
		if negated {
			return nil, fmt.Errorf("bound variables only support ==: %s", expr)
		}
		return BoundEquals{Field: field, BoundVar: value}, nil
	}

	literal := parseLiteral(value)
	if negated {
		return NotEquals{Field: field, Value: literal}, nil
	}
	return Equals{Field: field, Value: literal}, nil
}

// parseLiteral converts the right-hand side of a comparison to an IRValue.
func parseLiteral(value string) ir.IRValue {
	if len(value) >= 2 {
		if (value[0] == '\'' && value[len(value)-1] == '\'') ||
			(value[0] == '"' && value[len(value)-1] == '"') {
			return ir.IRString(value[1 : len(value)-1])
		}
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ir.IRInt(n)
	}

	switch value {
	case "true":
		return ir.IRBool(true)
	case "false":
		return ir.IRBool(false)
	case "null":
		return ir.IRNull{}
	}

	// Assume unquoted string literal
	return ir.IRString(value)
}
