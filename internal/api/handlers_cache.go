// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"net/http"

	"github.com/tomtom215/dashforge/internal/logging"
)

const (
	// dataSourceParamTag bounds the ?dataSource= query parameter.
	dataSourceParamTag = "max=64"

	// currentSourceAlias names the hosting instance in cache requests.
	currentSourceAlias = "current"
)

// CacheInvalidation is the body returned by DELETE /api/v1/cache.
type CacheInvalidation struct {
	DataSource string `json:"data_source,omitempty"`
	Removed    int    `json:"removed"`
}

// CacheStats reports payload cache counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		respondError(w, r, errNoService)
		return
	}
	NewResponseWriter(w, r).Success(h.cache.Stats())
}

// InvalidateCache drops cached payloads so the next resolution reads from
// the backends. With ?dataSource=id only that source is dropped; the
// current instance is addressed as ?dataSource=current.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		respondError(w, r, errNoService)
		return
	}

	source, scoped := r.URL.Query()["dataSource"]
	if !scoped {
		removed := h.cache.Purge()
		logging.Ctx(r.Context()).Info().Int("removed", removed).Msg("Payload cache purged")
		NewResponseWriter(w, r).Success(CacheInvalidation{Removed: removed})
		return
	}

	id := source[0]
	if !validateParam(w, r, "dataSource", id, dataSourceParamTag) {
		return
	}
	cacheID := id
	if id == "" || id == currentSourceAlias {
		cacheID = ""
		id = currentSourceAlias
	}
	removed := h.cache.InvalidateDataSource(cacheID)
	logging.Ctx(r.Context()).Info().
		Str("data_source_id", id).
		Int("removed", removed).
		Msg("Payload cache invalidated for data source")
	NewResponseWriter(w, r).Success(CacheInvalidation{DataSource: id, Removed: removed})
}
