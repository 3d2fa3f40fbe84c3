package collection

import (
	"context"
	"log/slog"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/queryir"
	"github.com/roach88/lazyset/internal/querysql"
)

// boundKey is the bound variable carrying the candidate's identity key.
const boundKey = "bound.key"

// ExistenceQuery returns the query that decides whether the entity with
// key belongs to the collection.
//
// Plain and projected collections ask whether the filtered (and windowed)
// row set has a row with that key. Grouped collections ask whether the
// row's group survives aggregation.
func (c *Collection) ExistenceQuery() queryir.Query {
	match := queryir.BoundEquals{Field: c.typ.Key, BoundVar: boundKey}
	sel := c.Select()
	if c.shape == ShapeGrouped {
		return queryir.GroupMember{Source: sel, Probe: match}
	}
	return queryir.Exists{Source: sel, Match: match}
}

// Explain compiles the existence query for key without running it.
func (c *Collection) Explain(key ir.IRValue) (string, []any, error) {
	param, err := ir.ToParam(key)
	if err != nil {
		return "", nil, err
	}
	compiler := querysql.NewSQLCompiler()
	compiler.BoundValues[boundKey] = param
	return compiler.Compile(c.ExistenceQuery())
}

// exists runs the existence query. It costs exactly one store query.
func (c *Collection) exists(ctx context.Context, key ir.IRValue) (bool, error) {
	query, params, err := c.Explain(key)
	if err != nil {
		return false, storeFailure(c.id, "compile existence query", err)
	}
	found, err := c.q.Exists(ctx, query, params...)
	if err != nil {
		return false, storeFailure(c.id, "execute existence query", err)
	}
	if c.logger.Enabled(ctx, slog.LevelDebug) {
		digest, _ := ir.QueryDigest(query, params)
		c.logger.DebugContext(ctx, "existence query",
			"collection", c.id,
			"digest", digest,
			"found", found,
		)
	}
	return found, nil
}
