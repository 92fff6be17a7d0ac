// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package websocket pushes visualization updates to dashboard clients.

The Hub subscribes to the visualization store and relays every accepted
publish or failure as a message:

	{"type": "visualization_data",  "data": <store.Entry>}
	{"type": "visualization_error", "data": <store.Entry>}

A client receives every visualization until it sends a subscribe message
listing the ids it renders:

	{"type": "subscribe", "data": {"visualizationIds": ["AHxO7yowduX"]}}

An empty list restores the receive-all behavior. Clients may also send
{"type": "ping"} and get {"type": "pong"} back.

Each client runs a read pump and a write pump. A client whose send buffer
is full is disconnected rather than allowed to stall the hub.
*/
package websocket
