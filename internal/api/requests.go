// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dashforge/internal/validation"
)

// maxBodyBytes caps request bodies. Resolve requests carry full indicator
// definitions, so the limit is generous.
const maxBodyBytes = 4 << 20

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a JSON body into v and validates it. Errors are already
// written to w; the caller only returns.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyBody
		}
		NewResponseWriter(w, r).ValidationError(fmt.Sprintf("invalid JSON body: %v", err), nil)
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		respondError(w, r, verr)
		return false
	}
	return true
}

// readDocument reads a raw JSON document body.
func readDocument(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		NewResponseWriter(w, r).ValidationError(fmt.Sprintf("read body: %v", err), nil)
		return nil, false
	}
	if len(body) == 0 {
		NewResponseWriter(w, r).ValidationError(errEmptyBody.Error(), nil)
		return nil, false
	}
	if !json.Valid(body) {
		NewResponseWriter(w, r).ValidationError("document is not valid JSON", nil)
		return nil, false
	}
	return body, true
}

// validateParam checks a path parameter against a validator tag.
func validateParam(w http.ResponseWriter, r *http.Request, field, value, tag string) bool {
	if verr := validation.ValidateVar(field, value, tag); verr != nil {
		respondError(w, r, verr)
		return false
	}
	return true
}
