// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package validation wraps go-playground/validator v10 with a shared
// instance, json-named field errors and two custom tags:
//
//	refresh_interval  "off", whole seconds ("30"), or a duration ("1m")
//	datastore_key     a dataStore namespace or key
//
// Handlers turn failures into VALIDATION_ERROR responses:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
package validation
