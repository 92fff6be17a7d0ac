// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/dashforge/internal/logging"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/pipeline"
	"github.com/tomtom215/dashforge/internal/scheduler"
)

const vizIDTag = "required,max=64"

// GeneratedQuery is one entry of the generate response.
type GeneratedQuery struct {
	IndicatorID string   `json:"indicatorId"`
	DataSource  string   `json:"dataSource,omitempty"`
	Numerator   string   `json:"numerator,omitempty"`
	Denominator string   `json:"denominator,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// WatchResponse is returned by PUT watch.
type WatchResponse struct {
	VisualizationID string  `json:"visualizationId"`
	Key             string  `json:"key"`
	IntervalSeconds float64 `json:"intervalSeconds"`
	InFlight        bool    `json:"inFlight"`
}

func watchResponse(info scheduler.WatchInfo) WatchResponse {
	return WatchResponse{
		VisualizationID: info.VisualizationID,
		Key:             info.Key,
		IntervalSeconds: info.Interval.Seconds(),
		InFlight:        info.InFlight,
	}
}

// vizID reads and validates the {id} path parameter.
func vizID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validateParam(w, r, "id", id, vizIDTag) {
		return "", false
	}
	return id, true
}

// GenerateQueries compiles indicators without executing them.
func (h *Handler) GenerateQueries(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	queries, err := h.generator.Generate(req.Indicators, req.GlobalFilters, req.Overrides)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]GeneratedQuery, len(queries))
	for i, q := range queries {
		out[i] = GeneratedQuery{
			IndicatorID: q.Indicator.ID,
			DataSource:  q.Indicator.DataSource,
			Numerator:   q.Numerator,
			Denominator: q.Denominator,
		}
		for _, rec := range q.Recovered {
			out[i].Warnings = append(out[i].Warnings, rec.Error())
		}
	}
	NewResponseWriter(w, r).Success(out)
}

// ResolveVisualization resolves one visualization synchronously.
func (h *Handler) ResolveVisualization(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		respondError(w, r, errNoService)
		return
	}
	id, ok := vizID(w, r)
	if !ok {
		return
	}
	var req models.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := pipeline.WithTrigger(r.Context(), pipeline.TriggerRequest)
	ds, err := h.resolver.Resolve(ctx, id, req)
	if errors.Is(err, pipeline.ErrSuperseded) && ds != nil {
		NewResponseWriter(w, r).SuccessWithMeta(h.latestDataset(id, ds), &APIMeta{Superseded: true})
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(ds)
}

// latestDataset returns the dataset the store holds for id, or fallback when
// none has been published.
func (h *Handler) latestDataset(id string, fallback *models.VisualizationDataset) *models.VisualizationDataset {
	if h.store == nil {
		return fallback
	}
	if e, ok := h.store.Get(id); ok && e.Dataset != nil {
		return e.Dataset
	}
	return fallback
}

// WatchVisualization registers a visualization with the refetch scheduler.
func (h *Handler) WatchVisualization(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		respondError(w, r, errNoService)
		return
	}
	id, ok := vizID(w, r)
	if !ok {
		return
	}
	var req models.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	info, err := h.watcher.Watch(id, req)
	if err != nil {
		NewResponseWriter(w, r).ValidationError(err.Error(), map[string]interface{}{"field": "refreshInterval"})
		return
	}
	logging.Ctx(r.Context()).Debug().
		Str("visualization_id", sanitizeLogValue(id)).
		Str("key", info.Key).
		Dur("interval", info.Interval).
		Msg("visualization watched")
	NewResponseWriter(w, r).Success(watchResponse(info))
}

// UnwatchVisualization cancels a visualization's timer and in-flight run.
func (h *Handler) UnwatchVisualization(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		respondError(w, r, errNoService)
		return
	}
	id, ok := vizID(w, r)
	if !ok {
		return
	}
	if !h.watcher.Unwatch(id) {
		respondError(w, r, scheduler.ErrNotWatched)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// FocusVisualization reports that the consuming view regained focus.
func (h *Handler) FocusVisualization(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		respondError(w, r, errNoService)
		return
	}
	id, ok := vizID(w, r)
	if !ok {
		return
	}
	if err := h.watcher.Focus(id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetVisualization returns the current state of one visualization.
func (h *Handler) GetVisualization(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, r, errNoService)
		return
	}
	id, ok := vizID(w, r)
	if !ok {
		return
	}
	entry, found := h.store.Get(id)
	if !found {
		NewResponseWriter(w, r).NotFound("visualization has no data")
		return
	}
	NewResponseWriter(w, r).Success(entry)
}

// ListWatches returns every watched visualization.
func (h *Handler) ListWatches(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		respondError(w, r, errNoService)
		return
	}
	infos := h.watcher.Watches()
	out := make([]WatchResponse, len(infos))
	for i, info := range infos {
		out[i] = watchResponse(info)
	}
	NewResponseWriter(w, r).Success(out)
}
