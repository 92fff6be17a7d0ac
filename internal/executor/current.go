// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package executor

import (
	"context"
	"fmt"

	"github.com/tomtom215/dashforge/internal/cache"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/transport"
)

// executeCurrent sends every uncached side to the hosting instance in a
// single QueryBatch call.
func (e *Executor) executeCurrent(ctx context.Context, ds models.DataSource, q query.IndicatorQuery) (SidePayloads, error) {
	var out SidePayloads

	pending := make(map[string]string)
	keys := make(map[string]string)
	for _, side := range requestedSides(q) {
		path := q.Path(side)
		keys[side] = payloadKey(ds, path)
		if p, ok := e.lookup(ctx, keys[side]); ok {
			if err := assign(&out, side, p, nil); err != nil {
				return SidePayloads{}, err
			}
			continue
		}
		pending[side] = path
	}
	if len(pending) == 0 {
		return out, nil
	}

	batchKey := cache.GenerateKey("batch", pending)
	v, err := e.share(ctx, batchKey, func(fetchCtx context.Context) (interface{}, error) {
		return e.current.QueryBatch(fetchCtx, pending), nil
	})
	if err != nil {
		return SidePayloads{}, err
	}
	results, ok := v.(map[string]transport.BatchResult)
	if !ok {
		return SidePayloads{}, fmt.Errorf("unexpected batch result type %T", v)
	}

	// Numerator first so its error wins.
	for _, side := range []string{query.SideNumerator, query.SideDenominator} {
		path, requested := pending[side]
		if !requested {
			continue
		}
		r, ok := results[side]
		if !ok {
			r.Err = fmt.Errorf("batch returned no result for %s", side)
		}
		var p models.RawPayload
		if r.Err == nil {
			p = decodeGrid(ctx, path, r.Body)
			e.cache.Put(keys[side], cacheSource(ds), p)
		}
		if err := assign(&out, side, p, r.Err); err != nil {
			return SidePayloads{}, err
		}
	}
	return out, nil
}
