// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package services adapts Dashforge components to suture.Service.
//
// Components whose run loop already has the Serve(ctx) error shape, such as
// the refetch scheduler, are added to the tree directly. The wrappers here
// cover the rest:
//
//   - HTTPServerService: ListenAndServe plus graceful Shutdown
//   - WebSocketHubService: the hub's RunWithContext loop
//   - ResourceService: closes cache and datastore handles on shutdown
package services
