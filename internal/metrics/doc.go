// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are registered with promauto at package init and updated
// directly or through the Record helpers:
//
//	start := time.Now()
//	resp, err := client.Do(req)
//	metrics.RecordBackendRequest("external", statusOf(resp), time.Since(start))
//
// Pipeline series use the dashforge_ prefix. HTTP, WebSocket and circuit
// breaker series keep generic names so shared dashboards work unchanged.
package metrics
