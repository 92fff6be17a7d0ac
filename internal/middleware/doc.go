// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package middleware holds the HTTP middleware mounted on the API router:
//
//	RequestID          X-Request-ID propagation into logging context
//	PrometheusMetrics  per-route request metrics
//	Compression        gzip for JSON responses
//
// All middleware use the func(http.Handler) http.Handler shape expected by
// chi's Use.
package middleware
