package collection

import (
	"context"
	"strconv"

	"github.com/roach88/lazyset/internal/metrics"
)

// Resolution reports how a membership check was answered.
type Resolution struct {
	Found bool
	// Path is one of the metrics.Path* constants.
	Path          string
	CandidateType string
}

// Contains reports whether candidate is a member of the collection.
//
// Resolution order:
//  1. compatibility and identity, answered without the store;
//  2. a FullEntities result cache, scanned in memory;
//  3. one existence query.
//
// Contains never materializes the collection and never mutates the store.
// Errors are *ResolveError: an invalid candidate or a store failure.
func (c *Collection) Contains(ctx context.Context, candidate any) (bool, error) {
	res, err := c.Resolve(ctx, candidate)
	return res.Found, err
}

// Resolve is Contains, also reporting the resolution path.
func (c *Collection) Resolve(ctx context.Context, candidate any) (Resolution, error) {
	compat, err := CheckCompatible(c.reg, c.desc.Type, candidate)
	if err != nil {
		if re, ok := err.(*ResolveError); ok {
			re.Collection = c.id
		}
		c.record(ctx, Resolution{Path: metrics.PathError}, err)
		return Resolution{Path: metrics.PathError}, err
	}

	res := Resolution{CandidateType: compat.CandidateType}
	switch {
	case compat.Verdict == Incompatible:
		res.Path = metrics.PathIncompatible
	case compat.Verdict == NoIdentity:
		res.Path = metrics.PathNoIdentity
	case c.cache != nil && c.cache.Shape() == ShapeFullEntities:
		res.Path = metrics.PathCache
		res.Found = c.cache.FindByIdentity(compat.Key)
	default:
		res.Path = metrics.PathQuery
		found, err := c.exists(ctx, compat.Key)
		if err != nil {
			c.record(ctx, Resolution{Path: metrics.PathError, CandidateType: compat.CandidateType}, err)
			return Resolution{Path: metrics.PathError, CandidateType: compat.CandidateType}, err
		}
		res.Found = found
	}

	c.record(ctx, res, nil)
	return res, nil
}

func (c *Collection) record(ctx context.Context, res Resolution, err error) {
	metrics.ContainsTotal.WithLabelValues(res.Path, strconv.FormatBool(res.Found)).Inc()
	if err != nil {
		c.logger.DebugContext(ctx, "contains failed",
			"collection", c.id,
			"type", c.desc.Type,
			"candidate", res.CandidateType,
			"error", err,
		)
		return
	}
	c.logger.DebugContext(ctx, "contains resolved",
		"collection", c.id,
		"type", c.desc.Type,
		"candidate", res.CandidateType,
		"path", res.Path,
		"found", res.Found,
	)
}
