// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package cache provides query keys and a TTL cache for backend payloads.

# Query keys

Keys reduces a visualization snapshot to the list of entries that determine
what will be queried. The scheduler compares keys to decide whether a new
resolution is needed and Fingerprint condenses them for map lookups:

	keys := cache.Keys(req.Indicators, req.GlobalFilters, req.Overrides)
	if cache.Fingerprint(keys) != previous {
	    // filters changed, resolve again
	}

# Payload cache

Cache stores decoded payloads per data source and resource path so that
visualizations sharing a query do not issue it twice within the TTL. The
cache is bounded; a full cache drops expired entries first, then the entry
closest to expiry:

	c := cache.New(30*time.Second, 1024)
	defer c.Close()

	key := cache.GenerateKey("payload", []string{dataSourceID, path})
	if p, ok := c.Get(key); ok {
	    return p, nil
	}
	c.Put(key, dataSourceID, payload)

InvalidateDataSource drops one source's payloads, for example after its
credentials change. NewCacher returns Noop when caching is disabled in
configuration.

# Thread Safety

All operations are safe for concurrent use.
*/
package cache
