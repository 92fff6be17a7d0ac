// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package query

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/dashforge/internal/expr"
	"github.com/tomtom215/dashforge/internal/models"
)

// NullValue is bound to SQL view variables that have no resolved value.
const NullValue = "NULL"

const calcMarker = "calc"

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// SeedVariables returns the distinct ${name} tokens of a SQL view text in
// order of first appearance.
func SeedVariables(sql string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(sql, -1)
	seen := make(map[string]bool, len(matches))
	seeds := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		seeds = append(seeds, name)
	}
	return seeds
}

// VariableBinding is one resolved SQL view variable.
type VariableBinding struct {
	Name  string
	Value string
}

// ResolveVariables binds SQL view variables and returns the "var=name:value"
// pairs joined by "&". Seeds come first in their given order, defaulting to
// NULL; expression columns not among the seeds follow in name order.
//
// A "calc" expression that fails to evaluate leaves its variable at NULL.
// The output string is still complete, and the failures are returned joined
// as *expr.EvaluationError values.
func ResolveVariables(expressions map[string]models.Expression, filters models.GlobalFilters, seeds []string) (string, error) {
	bindings, err := resolveBindings(expressions, filters, seeds)
	pairs := make([]string, len(bindings))
	for i, b := range bindings {
		pairs[i] = "var=" + b.Name + ":" + b.Value
	}
	return strings.Join(pairs, "&"), err
}

func resolveBindings(expressions map[string]models.Expression, filters models.GlobalFilters, seeds []string) ([]VariableBinding, error) {
	values := make(map[string]string, len(seeds)+len(expressions))
	order := make([]string, 0, len(seeds)+len(expressions))
	for _, s := range seeds {
		if _, ok := values[s]; ok {
			continue
		}
		values[s] = NullValue
		order = append(order, s)
	}

	columns := make([]string, 0, len(expressions))
	for column := range expressions {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	var errs []error
	for _, column := range columns {
		if _, ok := values[column]; !ok {
			order = append(order, column)
		}
		value, err := resolveExpression(expressions[column], filters)
		if err != nil {
			errs = append(errs, err)
			value = NullValue
		}
		values[column] = value
	}

	out := make([]VariableBinding, len(order))
	for i, name := range order {
		out[i] = VariableBinding{Name: name, Value: values[name]}
	}
	return out, errors.Join(errs...)
}

func resolveExpression(e models.Expression, filters models.GlobalFilters) (string, error) {
	if e.IsGlobal {
		if items, ok := filters[e.Value]; ok {
			return strings.Join(items, "-"), nil
		}
	}

	keys := MatchGlobalKeys(e.Value, filters)
	if len(keys) == 0 {
		return e.Value, nil
	}

	resolved := e.Value
	for _, k := range keys {
		resolved = strings.ReplaceAll(resolved, k, strings.Join(filters[k], "-"))
	}
	return evaluateCalc(resolved)
}

// MatchGlobalKeys returns the global filter ids that occur in value as plain
// substrings, in sorted order. Ids that are substrings of other tokens match
// too; callers depending on stricter matching should replace this function.
func MatchGlobalKeys(value string, filters models.GlobalFilters) []string {
	var keys []string
	for k := range filters {
		if k != "" && strings.Contains(value, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// evaluateCalc replaces everything from the "calc" marker to the end of s
// with the value of the arithmetic that follows the marker.
func evaluateCalc(s string) (string, error) {
	idx := strings.Index(s, calcMarker)
	if idx < 0 {
		return s, nil
	}
	result, err := expr.Evaluate(strings.TrimSpace(s[idx+len(calcMarker):]), nil)
	if err != nil {
		return "", err
	}
	return s[:idx] + strconv.FormatFloat(result, 'f', -1, 64), nil
}
