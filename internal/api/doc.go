// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package api provides the HTTP and WebSocket surface of Dashforge.

Routes:

	GET    /api/v1/health                         liveness and circuit state
	POST   /api/v1/queries/generate               compile indicators to resource paths
	POST   /api/v1/visualizations/{id}/resolve    resolve and publish synchronously
	PUT    /api/v1/visualizations/{id}/watch      register with the refetch scheduler
	DELETE /api/v1/visualizations/{id}/watch      unmount
	POST   /api/v1/visualizations/{id}/focus      consuming view regained focus
	GET    /api/v1/visualizations/{id}            current dataset or error state
	GET    /api/v1/visualizations                 watched visualizations
	GET    /api/v1/ws                             visualization update stream
	GET    /api/v1/datastore/{namespace}          list keys
	GET    /api/v1/datastore/{namespace}/{key}    read a document
	PUT    /api/v1/datastore/{namespace}/{key}    write a document
	DELETE /api/v1/datastore/{namespace}/{key}    delete a document
	POST   /api/v1/search/{index}/documents       index a search document
	DELETE /api/v1/search/{index}/documents/{id}  delete a search document
	GET    /api/v1/cache                          payload cache counters
	DELETE /api/v1/cache[?dataSource=id]          drop cached payloads
	GET    /metrics                               Prometheus

Every JSON response uses one envelope:

	{
	  "success": false,
	  "data": null,
	  "error": {"code": "COMPILATION_ERROR", "message": "...", "details": {...}, "request_id": "..."},
	  "metadata": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

Error codes are stable: VALIDATION_ERROR, COMPILATION_ERROR, TRANSPORT_ERROR,
NOT_FOUND, INTERNAL_ERROR and SERVICE_UNAVAILABLE.
*/
package api
