// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

import "sort"

// GlobalDimensions is the set of well-known global dimension ids, keyed by
// id with the resource code each one stands for. Dashboards opt dimension
// bindings into a global selection by using one of these ids.
type GlobalDimensions map[string]string

// DefaultGlobalDimensions returns the ids shipped with stock dashboards.
// Deployments can replace them through the globals config section.
func DefaultGlobalDimensions() GlobalDimensions {
	return GlobalDimensions{
		"m5D13FqKZwN": ResourcePeriod,
		"mclvD0Z9mfT": ResourceOrgUnit,
		"GQhi6pRnTKF": ResourceOrgUnitLevel,
		"of2WvtwqbHR": ResourceOrgUnitGroup,
		"kuVtv8R9n8q": ResourceIndicator,
		"bWmWdCe3d4h": ResourceProgramIndicator,
		"h9oh0VhweQM": ResourceDataElement,
		"JsPfHe1QkJe": ResourceDataElementGroup,
		"HdiJ61vwqTX": ResourceDataElementGroupSet,
	}
}

// IsGlobal reports whether id is a well-known global dimension id.
func (g GlobalDimensions) IsGlobal(id string) bool {
	_, ok := g[id]
	return ok
}

// IDs returns the ids in sorted order.
func (g GlobalDimensions) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
