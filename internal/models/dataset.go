// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

import "time"

// Reserved column names on normalized rows.
const (
	ColumnValue = "value"
	ColumnTotal = "total"
)

// NormalizedRow is one row keyed by column name.
type NormalizedRow map[string]interface{}

// Clone returns a shallow copy of the row.
func (r NormalizedRow) Clone() NormalizedRow {
	out := make(NormalizedRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// VisualizationDataset is the published result for one visualization.
type VisualizationDataset struct {
	VisualizationID string                  `json:"visualizationId"`
	Data            []NormalizedRow         `json:"data"`
	Metadata        map[string]MetadataItem `json:"metadata"`
	Keys            []string                `json:"keys,omitempty"`
	Generation      uint64                  `json:"generation"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

// ResolveRequest is a snapshot of the dashboard state needed to resolve one
// visualization. The UI layer builds it; the pipeline never reads shared state.
type ResolveRequest struct {
	Indicators      []Indicator   `json:"indicators" validate:"required,dive"`
	DataSources     []DataSource  `json:"dataSources,omitempty" validate:"dive"`
	GlobalFilters   GlobalFilters `json:"globalFilters,omitempty"`
	Overrides       Overrides     `json:"overrides,omitempty"`
	RefreshInterval string        `json:"refreshInterval,omitempty" validate:"omitempty,refresh_interval"`
}

// GenerateRequest asks for compiled resource paths without executing them.
type GenerateRequest struct {
	Indicators    []Indicator   `json:"indicators" validate:"required,dive"`
	GlobalFilters GlobalFilters `json:"globalFilters,omitempty"`
	Overrides     Overrides     `json:"overrides,omitempty"`
}
