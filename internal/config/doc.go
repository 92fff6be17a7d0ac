// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package config loads and validates Dashforge configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, an optional
// YAML file, then environment variables. Each section maps to one
// component:
//
//	server            HTTP listener, CORS, inbound rate limit
//	current_instance  the hosting DHIS2 instance (batch queries, dataStore, ES proxy)
//	transport         outbound timeouts, rate limit, circuit breaker
//	cache             raw payload reuse
//	scheduler         refetch timers
//	datastore         dhis2 or badger document backend
//	security          key for "enc:" data-source passwords
//	logging           zerolog level and format
//	globals           well-known global dimension ids
//
// Example config.yaml:
//
//	current_instance:
//	  url: https://play.dhis2.example.org/dev
//	  username: admin
//	  password: district
//	scheduler:
//	  min_interval: 10s
//	globals:
//	  dimensions:
//	    m5D13FqKZwN: pe
//	    mclvD0Z9mfT: ou
package config
