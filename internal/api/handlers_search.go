// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// IndexSearchDocument forwards a document to the search proxy.
func (h *Handler) IndexSearchDocument(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		respondError(w, r, errNoService)
		return
	}
	index := chi.URLParam(r, "index")
	if !validateParam(w, r, "index", index, datastoreKeyTag) {
		return
	}
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	body, err := h.search.IndexDocument(r.Context(), index, json.RawMessage(doc))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		body = []byte("null")
	}
	NewResponseWriter(w, r).writeRaw(http.StatusCreated, body)
}

// DeleteSearchDocument removes a document through the search proxy.
func (h *Handler) DeleteSearchDocument(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		respondError(w, r, errNoService)
		return
	}
	index := chi.URLParam(r, "index")
	id := chi.URLParam(r, "docID")
	if !validateParam(w, r, "index", index, datastoreKeyTag) || !validateParam(w, r, "id", id, datastoreKeyTag) {
		return
	}
	if err := h.search.DeleteDocument(r.Context(), index, id); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
