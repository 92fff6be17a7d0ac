// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package arithmetic

import (
	"github.com/tomtom215/dashforge/internal/expr"
	"github.com/tomtom215/dashforge/internal/models"
)

// DayColumn names the label column added by the five-day split.
const DayColumn = "day"

// WorkingDays are the buckets a weekly aggregate is spread over.
var WorkingDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// SpecialCaseKey identifies an indicator placed on a specific visualization.
type SpecialCaseKey struct {
	VisualizationID string
	IndicatorID     string
}

// Rewrite transforms the combined rows of one indicator.
type Rewrite func(rows []models.NormalizedRow) []models.NormalizedRow

// specialCases lists visualization/indicator pairs whose stored data is a
// weekly total that dashboards display per working day. Entries date from a
// data migration; remove them once the source data is re-imported daily.
var specialCases = map[SpecialCaseKey]Rewrite{
	{VisualizationID: "AHxO7yowduX", IndicatorID: "ejqSEwfG07O"}: SplitAcrossWorkingDays,
	{VisualizationID: "AHxO7yowduX", IndicatorID: "FOgNEFzg210"}: SplitAcrossWorkingDays,
	{VisualizationID: "a19pSPoyUl9", IndicatorID: "ejqSEwfG07O"}: SplitAcrossWorkingDays,
	{VisualizationID: "a19pSPoyUl9", IndicatorID: "FOgNEFzg210"}: SplitAcrossWorkingDays,
}

// ApplySpecialCase runs the registered rewrite for the pair, if any.
func ApplySpecialCase(visualizationID, indicatorID string, rows []models.NormalizedRow) ([]models.NormalizedRow, bool) {
	rewrite, ok := specialCases[SpecialCaseKey{VisualizationID: visualizationID, IndicatorID: indicatorID}]
	if !ok {
		return rows, false
	}
	return rewrite(rows), true
}

// SplitAcrossWorkingDays sums the value column and emits one row per working
// day holding a fifth of the sum.
func SplitAcrossWorkingDays(rows []models.NormalizedRow) []models.NormalizedRow {
	var total float64
	for _, r := range rows {
		if v, ok := expr.ToFloat(r[models.ColumnValue]); ok {
			total += v
		}
	}

	share := total / float64(len(WorkingDays))
	out := make([]models.NormalizedRow, len(WorkingDays))
	for i, day := range WorkingDays {
		out[i] = models.NormalizedRow{DayColumn: day, models.ColumnValue: share}
	}
	return out
}
