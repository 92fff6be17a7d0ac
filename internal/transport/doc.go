// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package transport talks to DHIS2 instances over HTTP.

Every DHIS2 base URL gets one Client, which owns:
  - an http.Client with the configured request timeout
  - a token bucket (golang.org/x/time/rate) for outbound requests
  - a circuit breaker (sony/gobreaker) with state exported to Prometheus

Requests are never retried here. Failures come back as *Error so callers
can inspect the status code or test for a tripped breaker.

Two roles are built on Client:

	CurrentInstance  the hosting instance: batched queries, the dataStore
	                 and the Elasticsearch proxy (wal/search, wal/index,
	                 wal/delete)
	Pool             external DHIS2 instances, one Client per data source
	                 credential set

Passwords prefixed with "enc:" are decrypted with the configured
config.CredentialEncryptor just before the Client is built.
*/
package transport
