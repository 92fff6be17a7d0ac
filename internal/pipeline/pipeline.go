// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/dashforge/internal/arithmetic"
	"github.com/tomtom215/dashforge/internal/cache"
	"github.com/tomtom215/dashforge/internal/executor"
	"github.com/tomtom215/dashforge/internal/logging"
	"github.com/tomtom215/dashforge/internal/metrics"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/normalize"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/store"
)

// ErrSuperseded is returned with the computed dataset when a newer
// resolution for the same visualization started first.
var ErrSuperseded = errors.New("resolution superseded by a newer one")

// Trigger says why a resolution started.
type Trigger string

const (
	TriggerRequest   Trigger = "request"
	TriggerKeyChange Trigger = "key_change"
	TriggerInterval  Trigger = "interval"
	TriggerFocus     Trigger = "focus"
)

type triggerKey struct{}

// WithTrigger records the trigger on ctx. Interval runs also bypass the
// payload cache.
func WithTrigger(ctx context.Context, t Trigger) context.Context {
	ctx = context.WithValue(ctx, triggerKey{}, t)
	if t == TriggerInterval {
		ctx = executor.WithCacheBypass(ctx)
	}
	return ctx
}

// TriggerFromContext returns the trigger, TriggerRequest by default.
func TriggerFromContext(ctx context.Context) Trigger {
	if t, ok := ctx.Value(triggerKey{}).(Trigger); ok {
		return t
	}
	return TriggerRequest
}

// Executor fetches raw payloads for one indicator.
type Executor interface {
	Execute(ctx context.Context, ds models.DataSource, q query.IndicatorQuery, filters models.GlobalFilters) (executor.SidePayloads, error)
}

// Pipeline ties the generator, executor and store together.
type Pipeline struct {
	generator *query.Generator
	exec      Executor
	store     *store.Store
}

// New creates a Pipeline.
func New(generator *query.Generator, exec Executor, st *store.Store) *Pipeline {
	return &Pipeline{generator: generator, exec: exec, store: st}
}

// Resolve computes the dataset for vizID and publishes it. When a newer
// resolution for vizID started in the meantime the dataset is returned
// together with ErrSuperseded and the store is left untouched.
func (p *Pipeline) Resolve(ctx context.Context, vizID string, req models.ResolveRequest) (*models.VisualizationDataset, error) {
	start := time.Now()
	trigger := TriggerFromContext(ctx)
	ctx = logging.ContextWithVisualizationID(ctx, vizID)

	keys := cache.Keys(req.Indicators, req.GlobalFilters, req.Overrides)
	ticket := p.store.Begin(vizID, cache.Fingerprint(keys))

	ds, err := p.Compute(ctx, vizID, req)
	if err != nil {
		outcome := "failed"
		if !p.store.Fail(ticket, err) {
			outcome = "stale"
		}
		metrics.RecordResolution(string(trigger), outcome, time.Since(start))
		logging.Ctx(ctx).Error().Err(err).Str("trigger", string(trigger)).Msg("Visualization resolution failed")
		return nil, err
	}
	ds.Keys = keys

	if !p.store.Publish(ticket, ds) {
		metrics.RecordResolution(string(trigger), "stale", time.Since(start))
		return ds, ErrSuperseded
	}
	metrics.RecordResolution(string(trigger), "published", time.Since(start))
	logging.Ctx(ctx).Debug().
		Str("trigger", string(trigger)).
		Int("rows", len(ds.Data)).
		Dur("duration", time.Since(start)).
		Msg("Visualization published")
	return ds, nil
}

// Compute runs the pipeline without touching the store.
func (p *Pipeline) Compute(ctx context.Context, vizID string, req models.ResolveRequest) (*models.VisualizationDataset, error) {
	queries, err := p.generator.Generate(req.Indicators, req.GlobalFilters, req.Overrides)
	if err != nil {
		metrics.CompilationErrors.Inc()
		return nil, err
	}

	sources := models.NewDataSources(req.DataSources)
	out := &models.VisualizationDataset{
		Data:     []models.NormalizedRow{},
		Metadata: make(map[string]models.MetadataItem),
	}

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		source := sources.Lookup(q.Indicator.DataSource)
		rows, meta, err := p.resolveIndicator(ctx, vizID, source, q, req.GlobalFilters)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", q.Indicator.ID, err)
		}
		out.Data = append(out.Data, rows...)
		for k, v := range meta {
			out.Metadata[k] = v
		}
	}
	return out, nil
}

func (p *Pipeline) resolveIndicator(ctx context.Context, vizID string, source models.DataSource, q query.IndicatorQuery, filters models.GlobalFilters) ([]models.NormalizedRow, map[string]models.MetadataItem, error) {
	log := logging.Ctx(ctx).With().
		Str("indicator_id", q.Indicator.ID).
		Str("data_source_id", source.ID).
		Logger()

	if source.Type != models.DataSourceElasticsearch {
		for _, side := range []string{query.SideNumerator, query.SideDenominator} {
			if path := q.Path(side); path != "" {
				metrics.QueriesGenerated.WithLabelValues(pathKind(path)).Inc()
				log.Debug().Str("side", side).Str("path", path).Msg("Generated query")
			}
		}
	}
	for _, err := range q.Recovered {
		metrics.ExpressionErrors.WithLabelValues("sql_view").Inc()
		log.Warn().Err(err).Msg("SQL view variable bound to NULL")
	}

	payloads, err := p.exec.Execute(ctx, source, q, filters)
	if err != nil {
		log.Error().Err(err).Msg("Backend request failed")
		return nil, nil, err
	}
	if payloads.Numerator == nil {
		return nil, nil, nil
	}

	meta := make(map[string]models.MetadataItem)
	num := normalizeSide(payloads.Numerator, meta)

	var denRows []models.NormalizedRow
	switch {
	case payloads.DenominatorErr != nil:
		metrics.DenominatorDrops.Inc()
		log.Warn().Err(payloads.DenominatorErr).Msg("Denominator failed, using numerator only")
	case payloads.Denominator != nil:
		denRows = normalizeSide(payloads.Denominator, meta)
	}

	outcome := arithmetic.Combine(&q.Indicator, num, denRows)
	if outcome.Unmatched > 0 {
		metrics.UnmatchedRows.Add(float64(outcome.Unmatched))
	}
	for _, err := range outcome.Recovered {
		metrics.ExpressionErrors.WithLabelValues("arithmetic").Inc()
		log.Warn().Err(err).Msg("Indicator value replaced by sentinel")
	}

	rows, special := arithmetic.ApplySpecialCase(vizID, q.Indicator.ID, outcome.Rows)
	if special {
		log.Debug().Msg("Applied working-day split")
	}
	return rows, meta, nil
}

func normalizeSide(p *models.RawPayload, meta map[string]models.MetadataItem) []models.NormalizedRow {
	res := normalize.Normalize(*p)
	if res.Fallback {
		metrics.NormalizationFallbacks.WithLabelValues(string(p.Kind)).Inc()
	}
	for k, v := range res.Metadata {
		meta[k] = v
	}
	return res.Rows
}

func pathKind(path string) string {
	if strings.HasPrefix(path, "sqlViews/") {
		return "sql_view"
	}
	return "analytics"
}
