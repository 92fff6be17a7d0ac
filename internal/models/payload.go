// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// PayloadKind discriminates RawPayload variants. It is set by the transport
// from the request that produced the body, never inferred from the body.
type PayloadKind string

const (
	// PayloadListGrid is a sqlViews data.json response.
	PayloadListGrid PayloadKind = "list_grid"

	// PayloadAnalytics is an analytics.json response with metaData.items.
	PayloadAnalytics PayloadKind = "analytics"

	// PayloadBuckets is an Elasticsearch response carrying aggregations.
	PayloadBuckets PayloadKind = "buckets"

	// PayloadHits is an Elasticsearch response carrying only hits.
	PayloadHits PayloadKind = "hits"
)

// GridHeader names one column of a grid payload.
type GridHeader struct {
	Name      string `json:"name"`
	Column    string `json:"column,omitempty"`
	ValueType string `json:"valueType,omitempty"`
}

// Grid is the positional rows/headers shape shared by list grids and analytics.
type Grid struct {
	Headers []GridHeader    `json:"headers"`
	Rows    [][]interface{} `json:"rows"`
}

// MetadataItem is a label entry from analytics metaData.items.
type MetadataItem struct {
	Name string `json:"name"`
}

// RawPayload is one backend response before normalization.
// Only the fields for Kind are populated.
type RawPayload struct {
	Kind PayloadKind

	// Grid is set for PayloadListGrid and PayloadAnalytics. Nil means the
	// backend returned no usable grid.
	Grid *Grid

	// Items is set for PayloadAnalytics.
	Items map[string]MetadataItem

	// Aggregations is the bucket tree for PayloadBuckets.
	Aggregations map[string]interface{}

	// Hits holds document sources for PayloadHits.
	Hits []map[string]interface{}
}

type listGridEnvelope struct {
	ListGrid *Grid `json:"listGrid"`
	Grid
}

type analyticsEnvelope struct {
	Grid
	MetaData struct {
		Items map[string]MetadataItem `json:"items"`
	} `json:"metaData"`
}

type searchEnvelope struct {
	Aggregations map[string]interface{} `json:"aggregations"`
	Hits         struct {
		Hits []struct {
			ID     string                 `json:"_id"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// DecodeGridPayload decodes a DHIS2 response body. Paths under sqlViews/
// produce list grids; everything else is treated as analytics.
func DecodeGridPayload(resourcePath string, body []byte) (RawPayload, error) {
	if strings.HasPrefix(resourcePath, "sqlViews/") {
		return DecodeListGrid(body)
	}
	return DecodeAnalytics(body)
}

// DecodeListGrid decodes a SQL view data response. Both the wrapped
// {"listGrid":{...}} form and a bare grid are accepted.
func DecodeListGrid(body []byte) (RawPayload, error) {
	var env listGridEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return RawPayload{Kind: PayloadListGrid}, fmt.Errorf("decode list grid: %w", err)
	}
	grid := env.ListGrid
	if grid == nil && env.Headers != nil {
		grid = &env.Grid
	}
	return RawPayload{Kind: PayloadListGrid, Grid: grid}, nil
}

// DecodeAnalytics decodes an analytics.json response.
func DecodeAnalytics(body []byte) (RawPayload, error) {
	var env analyticsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return RawPayload{Kind: PayloadAnalytics}, fmt.Errorf("decode analytics: %w", err)
	}
	p := RawPayload{Kind: PayloadAnalytics, Items: env.MetaData.Items}
	if env.Headers != nil {
		p.Grid = &env.Grid
	}
	return p, nil
}

// DecodeSearch decodes an Elasticsearch search response. Aggregations take
// precedence over hits.
func DecodeSearch(body []byte) (RawPayload, error) {
	var env searchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return RawPayload{Kind: PayloadBuckets}, fmt.Errorf("decode search: %w", err)
	}
	if len(env.Aggregations) > 0 {
		return RawPayload{Kind: PayloadBuckets, Aggregations: env.Aggregations}, nil
	}
	hits := make([]map[string]interface{}, 0, len(env.Hits.Hits))
	for _, h := range env.Hits.Hits {
		hits = append(hits, h.Source)
	}
	return RawPayload{Kind: PayloadHits, Hits: hits}, nil
}
