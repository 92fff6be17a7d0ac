// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

// SearchRequest is the body POSTed to the wal/search proxy.
type SearchRequest struct {
	Index string                 `json:"index"`
	Size  int                    `json:"size"`
	Query SearchQuery            `json:"query"`
	Aggs  map[string]interface{} `json:"aggs,omitempty"`
}

// SearchQuery wraps a bool query.
type SearchQuery struct {
	Bool BoolQuery `json:"bool"`
}

// BoolQuery holds the must clauses of a bool query.
type BoolQuery struct {
	Must []interface{} `json:"must"`
}
