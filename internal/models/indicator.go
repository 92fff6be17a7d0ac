// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

// SideType identifies which backend query shape an indicator side compiles to.
type SideType string

const (
	// SideAnalytics compiles to an analytics.json request.
	SideAnalytics SideType = "ANALYTICS"

	// SideSQLView compiles to a sqlViews/{id}/data.json request.
	SideSQLView SideType = "SQL_VIEW"

	// SideOther is accepted but never produces a query.
	SideOther SideType = "OTHER"
)

// IdentityFactor is the factor value meaning "no scaling".
const IdentityFactor = "1"

// Indicator is a named numerator/denominator pair plus the rule that combines them.
//
// When Custom is true, Factor holds a formula template where the literal
// placeholders x and y stand for the numerator and denominator values
// (for example "x-y" or "(x/y)*1000"). Otherwise Factor is a multiplier
// suffix such as "*100", or "1" for identity.
type Indicator struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name,omitempty"`
	Numerator   *IndicatorSide `json:"numerator,omitempty"`
	Denominator *IndicatorSide `json:"denominator,omitempty"`
	Factor      string         `json:"factor,omitempty"`
	Custom      bool           `json:"custom,omitempty"`
	DataSource  string         `json:"dataSource,omitempty"`
}

// EffectiveFactor returns Factor, or IdentityFactor when unset.
func (i *Indicator) EffectiveFactor() string {
	if i.Factor == "" {
		return IdentityFactor
	}
	return i.Factor
}

// IndicatorSide is one side (numerator or denominator) of an indicator.
type IndicatorSide struct {
	Type           SideType              `json:"type"`
	Query          string                `json:"query,omitempty"`
	Expressions    map[string]Expression `json:"expressions,omitempty"`
	DataDimensions DimensionSet          `json:"dataDimensions,omitempty"`
}

// Expression is a SQL-view variable binding. Value is either a literal,
// a global filter id (when IsGlobal), or text containing global filter
// ids to substitute, optionally followed by a "calc" arithmetic marker.
type Expression struct {
	Value    string `json:"value"`
	IsGlobal bool   `json:"isGlobal,omitempty"`
}

// Axis values for DimensionBinding.Type.
const (
	AxisDimension = "dimension"
	AxisFilter    = "filter"
)

// Resource codes for DimensionBinding.Resource.
const (
	ResourcePeriod              = "pe"
	ResourceIndicator           = "i"
	ResourceOrgUnit             = "ou"
	ResourceOrgUnitGroup        = "oug"
	ResourceOrgUnitLevel        = "oul"
	ResourceDataElement         = "de"
	ResourceDataElementGroup    = "deg"
	ResourceDataElementGroupSet = "degs"
	ResourceProgramIndicator    = "pi"
	ResourceSQLView             = "v"
	ResourceGenericDimension    = "dimension"
)

// DimensionBinding binds one selected item to an analytics dimension.
type DimensionBinding struct {
	ID        string `json:"id,omitempty"`
	Resource  string `json:"resource,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	Type      string `json:"type,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Suffix    string `json:"suffix,omitempty"`
	Label     string `json:"label,omitempty"`
}

// GlobalFilters maps a global dimension id to its ordered selected items.
type GlobalFilters map[string][]string

// Has reports whether id is a key of the filter map.
func (g GlobalFilters) Has(id string) bool {
	_, ok := g[id]
	return ok
}

// Overrides maps a binding id to a replacement axis ("dimension" or "filter").
type Overrides map[string]string
