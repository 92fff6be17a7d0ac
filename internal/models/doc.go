// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package models defines the data structures shared by the query pipeline.

Key Components:

  - Indicator and IndicatorSide: a numerator/denominator pair with a factor
  - DimensionSet: ordered dimension bindings decoded from a JSON object
  - GlobalFilters and Overrides: dashboard-level selections
  - DataSource: the backend an indicator side is fetched from
  - RawPayload: a decoded backend response (analytics grid, list grid, search)
  - VisualizationDataset: the rows and metadata published for a visualization

DimensionSet keeps the key order of the JSON object it was decoded from.
Compiled query strings depend on that order, so every consumer iterates the
slice rather than building maps from it:

	var set models.DimensionSet
	if err := json.Unmarshal(raw, &set); err != nil {
	    return err
	}
	for _, b := range set {
	    fmt.Println(b.ID, b.Resource)
	}

Payloads are decoded by the resource path that produced them:

	payload, err := models.DecodeGridPayload(path, body)

# Thread Safety

Values are plain data. Callers must not mutate a value that has been handed
to another goroutine; NormalizedRow.Clone produces an independent copy.
*/
package models
