// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status         string  `json:"status"`
	CurrentCircuit string  `json:"current_instance_circuit,omitempty"`
	WSClients      int     `json:"websocket_clients"`
	Watched        int     `json:"watched_visualizations"`
	CachedPayloads int     `json:"cached_payloads"`
	Uptime         float64 `json:"uptime_seconds"`
}

// Health reports liveness. The service is "degraded" while the current
// instance circuit is open; it still answers 200 so orchestrators do not
// restart it for a backend outage.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(h.startTime).Seconds(),
	}
	if h.current != nil {
		status.CurrentCircuit = h.current.State()
		if status.CurrentCircuit == "open" {
			status.Status = "degraded"
		}
	}
	if h.hub != nil {
		status.WSClients = h.hub.GetClientCount()
	}
	if h.cache != nil {
		status.CachedPayloads = h.cache.Stats().Entries
	}
	if h.watcher != nil {
		status.Watched = len(h.watcher.Watches())
	}
	NewResponseWriter(w, r).Success(status)
}
