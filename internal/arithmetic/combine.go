// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package arithmetic combines normalized numerator and denominator rows into
// indicator values.
//
// Rows are matched by signature: the sorted concatenation of every column
// value except value and total. For each matched pair the first applicable
// rule wins:
//
//  1. custom formula with x and y bound to the two values
//  2. ratio scaled by a non-identity factor suffix
//  3. plain ratio
//
// The same rules are tried on the total column when value is missing on
// either side. A numerator row without a matching denominator row gets 0.
// Expression failures, including division by zero, also yield 0 and are
// reported in Outcome.Recovered.
package arithmetic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/dashforge/internal/expr"
	"github.com/tomtom215/dashforge/internal/models"
)

// Sentinel is written to the value column when a row cannot be computed.
const Sentinel float64 = 0

// Outcome is the result of combining one indicator's rows.
type Outcome struct {
	Rows []models.NormalizedRow

	// Recovered holds expression failures replaced by Sentinel.
	Recovered []error

	// Unmatched counts numerator rows without a denominator match.
	Unmatched int
}

// Signature returns the row matching key.
func Signature(row models.NormalizedRow) string {
	values := make([]string, 0, len(row))
	for k, v := range row {
		if k == models.ColumnValue || k == models.ColumnTotal {
			continue
		}
		values = append(values, fmt.Sprint(v))
	}
	sort.Strings(values)
	return strings.Join(values, "")
}

// Combine applies the indicator's factor rules. A nil denominator means no
// denominator was queried and selects the numerator-only path.
func Combine(ind *models.Indicator, numerator, denominator []models.NormalizedRow) Outcome {
	if denominator == nil {
		return numeratorOnly(ind, numerator)
	}

	index := make(map[string]models.NormalizedRow, len(denominator))
	for _, d := range denominator {
		sig := Signature(d)
		if _, exists := index[sig]; !exists {
			index[sig] = d
		}
	}

	out := Outcome{Rows: make([]models.NormalizedRow, 0, len(numerator))}
	for _, n := range numerator {
		row := n.Clone()
		d, ok := index[Signature(n)]
		if !ok {
			row[models.ColumnValue] = Sentinel
			out.Unmatched++
			out.Rows = append(out.Rows, row)
			continue
		}

		value, err := ladder(ind, n, d)
		if err != nil {
			out.Recovered = append(out.Recovered, err)
			value = Sentinel
		}
		row[models.ColumnValue] = value
		out.Rows = append(out.Rows, row)
	}
	return out
}

// ladder walks the resolution rules on value, then on total.
func ladder(ind *models.Indicator, num, den models.NormalizedRow) (float64, error) {
	factor := ind.EffectiveFactor()
	for _, column := range []string{models.ColumnValue, models.ColumnTotal} {
		x, xok := expr.ToFloat(num[column])
		y, yok := expr.ToFloat(den[column])
		if !xok || !yok {
			continue
		}

		if ind.Custom {
			return expr.Evaluate(factor, map[string]interface{}{"x": x, "y": y})
		}

		ratio, err := divide(x, y)
		if err != nil {
			return 0, err
		}
		if factor != models.IdentityFactor {
			return expr.Scale(ratio, factor)
		}
		return ratio, nil
	}
	return Sentinel, nil
}

func divide(x, y float64) (float64, error) {
	if y == 0 {
		return 0, &expr.EvaluationError{
			Expression: expr.FormatNumber(x) + "/" + expr.FormatNumber(y),
			Err:        expr.ErrNonFinite,
		}
	}
	return x / y, nil
}

// numeratorOnly scales value (or total when value is absent) by the factor.
// Identity factors pass rows through unchanged.
func numeratorOnly(ind *models.Indicator, rows []models.NormalizedRow) Outcome {
	factor := ind.EffectiveFactor()
	out := Outcome{Rows: make([]models.NormalizedRow, 0, len(rows))}

	for _, r := range rows {
		row := r.Clone()
		if factor == models.IdentityFactor && !ind.Custom {
			out.Rows = append(out.Rows, row)
			continue
		}

		column := models.ColumnValue
		v, ok := expr.ToFloat(row[column])
		if !ok {
			column = models.ColumnTotal
			v, ok = expr.ToFloat(row[column])
		}
		if !ok {
			out.Rows = append(out.Rows, row)
			continue
		}

		var scaled float64
		var err error
		if ind.Custom {
			scaled, err = expr.Evaluate(factor, map[string]interface{}{"x": v})
		} else {
			scaled, err = expr.Scale(v, factor)
		}
		if err != nil {
			out.Recovered = append(out.Recovered, err)
			scaled = Sentinel
		}
		row[column] = scaled
		out.Rows = append(out.Rows, row)
	}
	return out
}
