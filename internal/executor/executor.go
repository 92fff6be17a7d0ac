// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/dashforge/internal/cache"
	"github.com/tomtom215/dashforge/internal/logging"
	"github.com/tomtom215/dashforge/internal/metrics"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/transport"
)

const payloadCacheType = "payload"

type bypassKey struct{}

// WithCacheBypass marks ctx so payloads are fetched even when cached.
func WithCacheBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}

// SidePayloads holds the raw payloads fetched for one indicator. A nil side
// was not requested or, for the denominator, failed.
type SidePayloads struct {
	Numerator   *models.RawPayload
	Denominator *models.RawPayload

	// DenominatorErr is set when the denominator was requested and failed.
	DenominatorErr error
}

// Executor routes indicator queries to their backends.
type Executor struct {
	current  transport.Batcher
	search   transport.Searcher
	external transport.HTTPGetter
	cache    cache.Cacher
	group    singleflight.Group
}

// New creates an Executor. c may be cache.Noop{}.
func New(current transport.Batcher, search transport.Searcher, external transport.HTTPGetter, c cache.Cacher) *Executor {
	if c == nil {
		c = cache.Noop{}
	}
	return &Executor{
		current:  current,
		search:   search,
		external: external,
		cache:    c,
	}
}

// sideFetch is one side to fetch, with the cache key it is stored under.
type sideFetch struct {
	side   string
	source string
	key    string
	fetch  func(ctx context.Context) (models.RawPayload, error)
}

// Execute fetches the payloads for q from the backend behind ds.
// ELASTICSEARCH sides are compiled here because they depend on the data
// source type, which the generator does not see.
func (e *Executor) Execute(ctx context.Context, ds models.DataSource, q query.IndicatorQuery, filters models.GlobalFilters) (SidePayloads, error) {
	switch {
	case ds.Type == models.DataSourceElasticsearch:
		sides, err := e.searchSides(ds, q, filters)
		if err != nil {
			return SidePayloads{}, err
		}
		return e.fanOut(ctx, sides)

	case ds.IsCurrentDHIS2:
		return e.executeCurrent(ctx, ds, q)

	default:
		return e.fanOut(ctx, e.externalSides(ds, q))
	}
}

func requestedSides(q query.IndicatorQuery) []string {
	var sides []string
	if q.Numerator != "" {
		sides = append(sides, query.SideNumerator)
	}
	if q.Denominator != "" {
		sides = append(sides, query.SideDenominator)
	}
	return sides
}

// cacheSource is the data source id payloads are cached under. The current
// instance uses the empty id whatever the request calls it.
func cacheSource(ds models.DataSource) string {
	if ds.IsCurrentDHIS2 {
		return ""
	}
	return ds.ID
}

func payloadKey(ds models.DataSource, resource interface{}) string {
	return cache.GenerateKey(payloadCacheType, struct {
		DataSource string      `json:"ds"`
		Resource   interface{} `json:"resource"`
	}{cacheSource(ds), resource})
}

func (e *Executor) externalSides(ds models.DataSource, q query.IndicatorQuery) []sideFetch {
	var out []sideFetch
	for _, side := range requestedSides(q) {
		path := q.Path(side)
		out = append(out, sideFetch{
			side:   side,
			source: cacheSource(ds),
			key:    payloadKey(ds, path),
			fetch: func(ctx context.Context) (models.RawPayload, error) {
				body, err := e.external.HTTPGet(ctx, ds, path)
				if err != nil {
					return models.RawPayload{}, err
				}
				return decodeGrid(ctx, path, body), nil
			},
		})
	}
	return out
}

func (e *Executor) searchSides(ds models.DataSource, q query.IndicatorQuery, filters models.GlobalFilters) ([]sideFetch, error) {
	ind := q.Indicator
	candidates := []struct {
		name string
		side *models.IndicatorSide
	}{
		{query.SideNumerator, ind.Numerator},
		{query.SideDenominator, ind.Denominator},
	}

	var out []sideFetch
	for _, c := range candidates {
		if c.side == nil || len(c.side.DataDimensions) == 0 {
			continue
		}
		req, err := query.BuildSearch(c.side, filters)
		if err != nil {
			return nil, &query.CompilationError{IndicatorID: ind.ID, Side: c.name, Err: err}
		}
		metrics.QueriesGenerated.WithLabelValues("search").Inc()
		out = append(out, sideFetch{
			side:   c.name,
			source: cacheSource(ds),
			key:    payloadKey(ds, req),
			fetch: func(ctx context.Context) (models.RawPayload, error) {
				body, err := e.search.Search(ctx, req)
				if err != nil {
					return models.RawPayload{}, err
				}
				p, err := models.DecodeSearch(body)
				if err != nil {
					logging.Ctx(ctx).Warn().Err(err).Str("index", req.Index).Msg("Undecodable search response, using no-data fallback")
				}
				return p, nil
			},
		})
	}
	return out, nil
}

// fanOut fetches the sides concurrently. A numerator failure cancels the
// denominator; a denominator failure is recorded and the numerator kept.
func (e *Executor) fanOut(ctx context.Context, sides []sideFetch) (SidePayloads, error) {
	var out SidePayloads

	if len(sides) == 1 {
		p, err := e.cached(ctx, sides[0])
		return out, assign(&out, sides[0].side, p, err)
	}

	payloads := make([]models.RawPayload, len(sides))
	errs := make([]error, len(sides))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sides {
		g.Go(func() error {
			payloads[i], errs[i] = e.cached(gctx, s)
			if s.side == query.SideNumerator {
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SidePayloads{}, err
	}

	for i, s := range sides {
		if err := assign(&out, s.side, payloads[i], errs[i]); err != nil {
			return SidePayloads{}, err
		}
	}
	return out, nil
}

// assign stores p on the named side. Only numerator errors are returned.
func assign(out *SidePayloads, side string, p models.RawPayload, err error) error {
	switch side {
	case query.SideNumerator:
		if err != nil {
			return err
		}
		out.Numerator = &p
	case query.SideDenominator:
		if err != nil {
			out.DenominatorErr = err
			return nil
		}
		out.Denominator = &p
	}
	return nil
}

// cached returns the cached payload for s or fetches it once for all
// concurrent callers.
func (e *Executor) cached(ctx context.Context, s sideFetch) (models.RawPayload, error) {
	if p, ok := e.lookup(ctx, s.key); ok {
		return p, nil
	}

	v, err := e.share(ctx, s.key, func(fetchCtx context.Context) (interface{}, error) {
		p, err := s.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		e.cache.Put(s.key, s.source, p)
		return p, nil
	})
	if err != nil {
		return models.RawPayload{}, err
	}
	p, ok := v.(models.RawPayload)
	if !ok {
		return models.RawPayload{}, fmt.Errorf("unexpected shared result type %T", v)
	}
	return p, nil
}

// share runs fn once per key for all concurrent callers. fn gets a context
// that keeps ctx's values but not its cancellation, so one caller giving up
// never fails the others; the transport timeout still bounds the fetch.
// Each caller waits only as long as its own ctx allows.
func (e *Executor) share(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key, func() (interface{}, error) {
		return fn(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.SharedFetches.Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Executor) lookup(ctx context.Context, key string) (models.RawPayload, bool) {
	if cacheBypassed(ctx) {
		return models.RawPayload{}, false
	}
	p, ok := e.cache.Get(key)
	metrics.RecordCacheLookup(payloadCacheType, ok)
	return p, ok
}

func decodeGrid(ctx context.Context, path string, body []byte) models.RawPayload {
	p, err := models.DecodeGridPayload(path, body)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("Undecodable response, using no-data fallback")
	}
	return p
}
