// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const datastoreKeyTag = "datastore_key"

// datastorePath reads and validates {namespace} and, when withKey is set, {key}.
func datastorePath(w http.ResponseWriter, r *http.Request, withKey bool) (namespace, key string, ok bool) {
	namespace = chi.URLParam(r, "namespace")
	if !validateParam(w, r, "namespace", namespace, datastoreKeyTag) {
		return "", "", false
	}
	if withKey {
		key = chi.URLParam(r, "key")
		if !validateParam(w, r, "key", key, datastoreKeyTag) {
			return "", "", false
		}
	}
	return namespace, key, true
}

// DatastoreKeys lists the keys of a namespace.
func (h *Handler) DatastoreKeys(w http.ResponseWriter, r *http.Request) {
	if h.datastore == nil {
		respondError(w, r, errNoService)
		return
	}
	namespace, _, ok := datastorePath(w, r, false)
	if !ok {
		return
	}
	keys, err := h.datastore.Keys(r.Context(), namespace)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(keys)
}

// DatastoreGet returns one document.
func (h *Handler) DatastoreGet(w http.ResponseWriter, r *http.Request) {
	if h.datastore == nil {
		respondError(w, r, errNoService)
		return
	}
	namespace, key, ok := datastorePath(w, r, true)
	if !ok {
		return
	}
	doc, err := h.datastore.Get(r.Context(), namespace, key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).writeRaw(http.StatusOK, doc)
}

// DatastorePut creates or replaces one document.
func (h *Handler) DatastorePut(w http.ResponseWriter, r *http.Request) {
	if h.datastore == nil {
		respondError(w, r, errNoService)
		return
	}
	namespace, key, ok := datastorePath(w, r, true)
	if !ok {
		return
	}
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	if err := h.datastore.Put(r.Context(), namespace, key, doc); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).writeRaw(http.StatusOK, doc)
}

// DatastoreDelete deletes one document.
func (h *Handler) DatastoreDelete(w http.ResponseWriter, r *http.Request) {
	if h.datastore == nil {
		respondError(w, r, errNoService)
		return
	}
	namespace, key, ok := datastorePath(w, r, true)
	if !ok {
		return
	}
	if err := h.datastore.Delete(r.Context(), namespace, key); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
