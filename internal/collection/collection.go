package collection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/metrics"
	"github.com/roach88/lazyset/internal/model"
	"github.com/roach88/lazyset/internal/queryir"
	"github.com/roach88/lazyset/internal/querysql"
	"github.com/roach88/lazyset/internal/store"
)

// Querier executes compiled statements. *store.Store implements it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Exists(ctx context.Context, query string, args ...any) (bool, error)
}

// Descriptor is the declarative definition of a collection.
//
// Filter and Exclude apply before aggregation. Values selects a projection.
// GroupBy (with Aggregates and Having) makes the collection grouped; Values
// must then be empty. OrderBy and Limit define a window; the type's key
// is always the final ordering tiebreaker.
type Descriptor struct {
	Type       string
	Filter     queryir.Predicate
	Exclude    []queryir.Predicate
	Values     []string
	GroupBy    []string
	Aggregates []queryir.Aggregate
	Having     queryir.Predicate
	OrderBy    []queryir.OrderTerm
	Limit      int
}

func (d Descriptor) clone() Descriptor {
	d.Exclude = slices.Clone(d.Exclude)
	d.Values = slices.Clone(d.Values)
	d.GroupBy = slices.Clone(d.GroupBy)
	d.Aggregates = slices.Clone(d.Aggregates)
	d.OrderBy = slices.Clone(d.OrderBy)
	return d
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) {
		c.logger = l
	}
}

// WithIDGenerator sets how collection instances are named.
// Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Collection) {
		c.ids = g
	}
}

// Collection is a lazy, query-backed collection of one entity type.
// Its definition never changes; the only state is the result cache, which
// is built at most once by full iteration.
type Collection struct {
	id     string
	desc   Descriptor
	reg    *model.Registry
	q      Querier
	typ    *model.EntityType
	shape  Shape
	logger *slog.Logger
	ids    IDGenerator
	cache  *ResultCache
}

// New validates desc against reg and returns an unmaterialized collection.
func New(reg *model.Registry, q Querier, desc Descriptor, opts ...Option) (*Collection, error) {
	typ, ok := reg.Lookup(desc.Type)
	if !ok {
		return nil, fmt.Errorf("collection: unknown entity type %q", desc.Type)
	}

	c := &Collection{
		desc:   desc.clone(),
		reg:    reg,
		q:      q,
		typ:    typ,
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := validateDescriptor(c.desc, typ); err != nil {
		return nil, fmt.Errorf("collection over %s: %w", desc.Type, err)
	}

	switch {
	case len(c.desc.GroupBy) > 0:
		c.shape = ShapeGrouped
	case len(c.desc.Values) > 0:
		c.shape = ShapeProjected
	default:
		c.shape = ShapeFullEntities
	}

	c.id = c.ids.Generate()
	return c, nil
}

// Derive returns a new, unmaterialized collection whose descriptor is a
// copy of c's modified by fn. c is unchanged.
func (c *Collection) Derive(fn func(*Descriptor)) (*Collection, error) {
	desc := c.desc.clone()
	fn(&desc)
	return New(c.reg, c.q, desc, WithLogger(c.logger), WithIDGenerator(c.ids))
}

// ID identifies this collection instance in logs.
func (c *Collection) ID() string {
	return c.id
}

// Descriptor returns a copy of the collection's definition.
func (c *Collection) Descriptor() Descriptor {
	return c.desc.clone()
}

// EntityType returns the declared entity type name.
func (c *Collection) EntityType() string {
	return c.desc.Type
}

// Shape returns the shape the collection materializes to.
func (c *Collection) Shape() Shape {
	return c.shape
}

// Cache returns the result cache, or nil if the collection has not been
// materialized.
func (c *Collection) Cache() *ResultCache {
	return c.cache
}

// Select returns the query describing the collection's rows.
func (c *Collection) Select() queryir.Select {
	sel := queryir.Select{
		From:    c.typ.Source(),
		Key:     c.typ.Key,
		Filter:  c.filter(),
		OrderBy: slices.Clone(c.desc.OrderBy),
		Limit:   c.desc.Limit,
	}

	switch c.shape {
	case ShapeGrouped:
		sel.GroupBy = slices.Clone(c.desc.GroupBy)
		sel.Aggregates = slices.Clone(c.desc.Aggregates)
		sel.Having = c.desc.Having
	case ShapeProjected:
		sel.Bindings = identityBindings(c.desc.Values)
	default:
		sel.Bindings = identityBindings(c.typ.Columns())
	}
	return sel
}

// filter combines Filter with the negation of every Exclude predicate.
func (c *Collection) filter() queryir.Predicate {
	preds := []queryir.Predicate{c.desc.Filter}
	for _, ex := range c.desc.Exclude {
		preds = append(preds, queryir.Not{Predicate: ex})
	}
	return queryir.Conjoin(preds...)
}

// Fetch materializes the collection on first call and returns the cache.
// Later calls return the same cache without a query.
func (c *Collection) Fetch(ctx context.Context) (*ResultCache, error) {
	if c.cache != nil {
		return c.cache, nil
	}

	query, params, err := querysql.NewSQLCompiler().Compile(c.Select())
	if err != nil {
		return nil, storeFailure(c.id, "compile collection query", err)
	}

	rows, err := c.q.Query(ctx, query, params...)
	if err != nil {
		return nil, storeFailure(c.id, "execute collection query", err)
	}
	defer rows.Close()

	var cache *ResultCache
	switch c.shape {
	case ShapeFullEntities:
		records, err := store.ScanRecords(rows, c.typ, c.desc.Type)
		if err != nil {
			return nil, storeFailure(c.id, "read collection rows", err)
		}
		cache = newEntityCache(records)
	default:
		objs, err := store.ScanObjects(rows, c.typ.KindOf)
		if err != nil {
			return nil, storeFailure(c.id, "read collection rows", err)
		}
		cache = newRowCache(c.shape, objs)
	}

	c.cache = cache
	metrics.MaterializationsTotal.WithLabelValues(c.shape.String()).Inc()
	c.logger.DebugContext(ctx, "collection materialized",
		"collection", c.id,
		"type", c.desc.Type,
		"shape", c.shape.String(),
		"rows", cache.Len(),
	)
	return cache, nil
}

// Records materializes the collection and returns its entities.
// Only FullEntities collections yield entities.
func (c *Collection) Records(ctx context.Context) ([]*model.Record, error) {
	if c.shape != ShapeFullEntities {
		return nil, fmt.Errorf("collection %s yields %s rows, not entities", c.id, c.shape)
	}
	cache, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return cache.Records(), nil
}

// Rows materializes the collection and returns every row as an object.
func (c *Collection) Rows(ctx context.Context) ([]ir.IRObject, error) {
	cache, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return cache.Rows(c.typ.Key), nil
}

// Len materializes the collection and returns its row count.
func (c *Collection) Len(ctx context.Context) (int, error) {
	cache, err := c.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return cache.Len(), nil
}

func identityBindings(cols []string) map[string]string {
	b := make(map[string]string, len(cols))
	for _, col := range cols {
		b[col] = col
	}
	return b
}
