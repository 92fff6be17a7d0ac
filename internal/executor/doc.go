// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package executor sends an indicator's generated queries to the backend that
owns its data source and returns the raw payloads.

Routing, per indicator:

	current DHIS2 instance  both sides in one QueryBatch call
	external DHIS2 / API    one HTTP GET per side, run concurrently
	Elasticsearch           one wal/search POST per side, run concurrently

Payloads are cached per (data source, resource) and identical in-flight
fetches are collapsed with singleflight. A shared fetch outlives any one
caller's cancellation; a cancelled caller returns its own ctx error while
the others keep waiting. Contexts marked with
WithCacheBypass skip the cache read but still refresh it.

A failed numerator fails the indicator. A failed denominator is reported in
SidePayloads.DenominatorErr and the caller continues numerator-only.
*/
package executor
