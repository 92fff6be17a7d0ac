// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package supervisor runs Dashforge's long-lived services under suture v4.

	root ("dashforge")
	├── data-layer
	│   ├── refetch-scheduler
	│   └── resources (payload cache, datastore)
	├── messaging-layer
	│   └── websocket-hub
	└── api-layer
	    └── http-server

A crashed service restarts with backoff inside its own layer. The HTTP API
keeps answering reads from the visualization store while the scheduler or
the hub restarts. Supervisor events go through sutureslog into the zerolog
logger via logging.NewSlogLogger.
*/
package supervisor
