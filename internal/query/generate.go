// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package query

import (
	"fmt"
	"strings"

	"github.com/tomtom215/dashforge/internal/expr"
	"github.com/tomtom215/dashforge/internal/models"
)

// Side names used in errors and logs.
const (
	SideNumerator   = "numerator"
	SideDenominator = "denominator"
)

const (
	analyticsPath      = "analytics.json"
	numeratorAggregate = "aggregationType=MAX"
	pagingDisabled     = "paging=false"
)

// IndicatorQuery holds the resource paths generated for one indicator.
// An empty path means no data was requested for that side.
type IndicatorQuery struct {
	Indicator   models.Indicator `json:"indicator"`
	Numerator   string           `json:"numerator,omitempty"`
	Denominator string           `json:"denominator,omitempty"`

	// Recovered holds expression failures that were replaced by NULL.
	Recovered []error `json:"-"`
}

// Path returns the resource path for side.
func (q IndicatorQuery) Path(side string) string {
	if side == SideDenominator {
		return q.Denominator
	}
	return q.Numerator
}

// Generator compiles indicators into resource paths.
type Generator struct {
	globals models.GlobalDimensions
}

// NewGenerator creates a Generator. Bindings that use one of the well-known
// global ids are dropped when the dashboard has no selection for that id.
func NewGenerator(globals models.GlobalDimensions) *Generator {
	if globals == nil {
		globals = models.DefaultGlobalDimensions()
	}
	return &Generator{globals: globals}
}

// Generate compiles every indicator. Any CompilationError aborts the run and
// no queries are returned.
func (g *Generator) Generate(indicators []models.Indicator, filters models.GlobalFilters, overrides models.Overrides) ([]IndicatorQuery, error) {
	out := make([]IndicatorQuery, 0, len(indicators))
	for i := range indicators {
		q, err := g.generateOne(&indicators[i], filters, overrides)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (g *Generator) generateOne(ind *models.Indicator, filters models.GlobalFilters, overrides models.Overrides) (IndicatorQuery, error) {
	q := IndicatorQuery{Indicator: *ind}

	if ind.Custom {
		if err := expr.Validate(ind.Factor); err != nil {
			return q, &CompilationError{IndicatorID: ind.ID, Err: fmt.Errorf("%w: %v", ErrInvalidFactor, err)}
		}
	}

	num, numRecovered, err := g.generateSide(ind.Numerator, true, filters, overrides)
	if err != nil {
		return q, &CompilationError{IndicatorID: ind.ID, Side: SideNumerator, Err: err}
	}
	den, denRecovered, err := g.generateSide(ind.Denominator, false, filters, overrides)
	if err != nil {
		return q, &CompilationError{IndicatorID: ind.ID, Side: SideDenominator, Err: err}
	}

	q.Numerator = num
	q.Denominator = den
	q.Recovered = append(numRecovered, denRecovered...)
	return q, nil
}

// generateSide returns the path, recovered expression errors, and a fatal
// compilation error.
func (g *Generator) generateSide(side *models.IndicatorSide, numerator bool, filters models.GlobalFilters, overrides models.Overrides) (string, []error, error) {
	if side == nil {
		return "", nil, nil
	}

	switch side.Type {
	case models.SideAnalytics:
		if len(side.DataDimensions) == 0 {
			return "", nil, nil
		}
		bindings := g.selectedBindings(side.DataDimensions, filters)
		params := SerializeParams(Compile(bindings, filters, overrides))
		if len(params) == 0 {
			return "", nil, nil
		}
		path := analyticsPath + "?" + strings.Join(params, "&")
		if numerator {
			path += "&" + numeratorAggregate
		}
		return path, nil, nil

	case models.SideSQLView:
		return SQLViewPath(side, filters)

	default:
		return "", nil, nil
	}
}

// SQLViewPath builds the data.json path for a SQL view side. Failed "calc"
// expressions are returned in recovered; err is a fatal compilation error.
func SQLViewPath(side *models.IndicatorSide, filters models.GlobalFilters) (path string, recovered []error, err error) {
	if len(side.DataDimensions) != 1 {
		return "", nil, fmt.Errorf("%w: got %d", ErrSQLViewDimensions, len(side.DataDimensions))
	}
	base := "sqlViews/" + side.DataDimensions[0].ID + "/data.json"

	vars, evalErr := ResolveVariables(side.Expressions, filters, SeedVariables(side.Query))
	if evalErr != nil {
		recovered = []error{evalErr}
	}
	if vars == "" {
		return base, recovered, nil
	}
	return base + "?" + vars + "&" + pagingDisabled, recovered, nil
}

// selectedBindings drops well-known global bindings with no selection.
func (g *Generator) selectedBindings(bindings models.DimensionSet, filters models.GlobalFilters) models.DimensionSet {
	out := make(models.DimensionSet, 0, len(bindings))
	for _, b := range bindings {
		if g.globals.IsGlobal(b.ID) && !filters.Has(b.ID) {
			continue
		}
		out = append(out, b)
	}
	return out
}
