// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Command server runs the Dashforge indicator service.

Startup order:

 1. Configuration (koanf: defaults, config.yaml or CONFIG_PATH, environment)
 2. Logging (zerolog, LOG_LEVEL / LOG_FORMAT / LOG_CALLER)
 3. Credential encryptor, when security.encryption_key is set
 4. Current DHIS2 instance client and the external data-source pool
 5. Payload cache, executor, visualization store and pipeline
 6. Refetch scheduler, WebSocket hub and datastore backend
 7. HTTP router, then the supervisor tree

Example:

	export DHIS2_URL=https://dhis2.example.org
	export DHIS2_USERNAME=dashforge
	export DHIS2_PASSWORD=secret
	export CORS_ORIGINS=https://dhis2.example.org
	./server

SIGINT and SIGTERM cancel the tree. The HTTP server drains within
server.shutdown_timeout, the hub closes client streams, the scheduler stops
its timers and cancels in-flight runs, and the cache janitor and datastore
are closed last.
*/
package main
