// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/dashforge/internal/datastore"
	"github.com/tomtom215/dashforge/internal/logging"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/scheduler"
	"github.com/tomtom215/dashforge/internal/transport"
	"github.com/tomtom215/dashforge/internal/validation"
)

// errNoService is returned when an optional dependency was not wired.
var errNoService = errors.New("service not configured")

// respondError maps err onto a status code and error code.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var (
		compErr *query.CompilationError
		tErr    *transport.Error
		vErr    *validation.RequestValidationError
	)

	switch {
	case errors.As(err, &vErr):
		apiErr := vErr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)

	case errors.As(err, &compErr):
		details := map[string]interface{}{"indicator_id": compErr.IndicatorID}
		if compErr.Side != "" {
			details["side"] = compErr.Side
		}
		rw.ErrorWithDetails(http.StatusUnprocessableEntity, ErrCodeCompilation, compErr.Error(), details)

	case transport.IsCircuitOpen(err):
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, err.Error())

	case errors.Is(err, datastore.ErrNotFound), errors.Is(err, scheduler.ErrNotWatched):
		rw.NotFound(err.Error())

	case errors.Is(err, datastore.ErrInvalidJSON):
		rw.ValidationError(err.Error(), nil)

	case errors.As(err, &tErr):
		details := map[string]interface{}{"path": tErr.Path}
		if tErr.Status > 0 {
			details["status"] = tErr.Status
		}
		if tErr.Source != "" {
			details["data_source"] = tErr.Source
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("backend request failed")
		rw.ErrorWithDetails(http.StatusBadGateway, ErrCodeTransport, err.Error(), details)

	case errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeTransport, "backend request timed out")

	case errors.Is(err, errNoService):
		rw.ServiceUnavailable(err.Error())

	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		rw.InternalError("An internal error occurred")
	}
}

// sanitizeLogValue escapes control characters in client-supplied strings.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
