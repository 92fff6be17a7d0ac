// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package normalize flattens backend payloads into rows keyed by column name.
//
// Normalization never fails. Payloads with a missing or malformed shape are
// reported through Result.Fallback and produce the zero-row fallback so that
// dashboards keep rendering when a backend degrades.
package normalize

import (
	"github.com/tomtom215/dashforge/internal/models"
)

// Result is a normalized payload.
type Result struct {
	Rows     []models.NormalizedRow
	Metadata map[string]models.MetadataItem

	// Fallback is set when the zero-row fallback was emitted.
	Fallback bool
}

// Normalize dispatches on the payload kind.
func Normalize(p models.RawPayload) Result {
	switch p.Kind {
	case models.PayloadListGrid:
		return normalizeGrid(p.Grid, nil)
	case models.PayloadAnalytics:
		return normalizeGrid(p.Grid, p.Items)
	case models.PayloadBuckets:
		return normalizeBuckets(p.Aggregations)
	case models.PayloadHits:
		return normalizeHits(p.Hits)
	default:
		return zeroResult(nil, nil)
	}
}

// Rows zips each positional row with the header names. A row shorter than
// the header list gets 0 for the missing cells; extra cells are dropped.
func Rows(headers []models.GridHeader, rows [][]interface{}) []models.NormalizedRow {
	out := make([]models.NormalizedRow, 0, len(rows))
	for _, r := range rows {
		row := make(models.NormalizedRow, len(headers))
		for i, h := range headers {
			if i < len(r) {
				row[h.Name] = r[i]
			} else {
				row[h.Name] = 0
			}
		}
		out = append(out, row)
	}
	return out
}

// ZeroRow returns a row with every column set to 0. Without columns it
// returns a single value column.
func ZeroRow(columns []string) models.NormalizedRow {
	if len(columns) == 0 {
		return models.NormalizedRow{models.ColumnValue: 0}
	}
	row := make(models.NormalizedRow, len(columns))
	for _, c := range columns {
		row[c] = 0
	}
	return row
}

func normalizeGrid(grid *models.Grid, items map[string]models.MetadataItem) Result {
	if grid == nil || len(grid.Headers) == 0 {
		return zeroResult(nil, items)
	}
	if len(grid.Rows) == 0 {
		return zeroResult(headerNames(grid.Headers), items)
	}
	return Result{Rows: Rows(grid.Headers, grid.Rows), Metadata: metadataOrEmpty(items)}
}

func zeroResult(columns []string, items map[string]models.MetadataItem) Result {
	return Result{
		Rows:     []models.NormalizedRow{ZeroRow(columns)},
		Metadata: metadataOrEmpty(items),
		Fallback: true,
	}
}

func headerNames(headers []models.GridHeader) []string {
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	return names
}

func metadataOrEmpty(items map[string]models.MetadataItem) map[string]models.MetadataItem {
	if items == nil {
		return map[string]models.MetadataItem{}
	}
	return items
}
