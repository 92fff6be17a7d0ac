// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package query

import (
	"strings"

	"github.com/tomtom215/dashforge/internal/models"
)

// CompiledDimension is one binding after global substitution and overrides.
type CompiledDimension struct {
	ID        string `json:"id"`
	Resource  string `json:"resource"`
	Type      string `json:"type"`
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

// Compile resolves each binding to its query value. Bindings whose id is a
// global filter key take the filter's items; an empty selection yields no
// entry. An override of "dimension" or "filter" for a binding id replaces its
// axis. Bindings without an axis default to "dimension".
func Compile(bindings models.DimensionSet, filters models.GlobalFilters, overrides models.Overrides) []CompiledDimension {
	out := make([]CompiledDimension, 0, len(bindings))
	for _, b := range bindings {
		var value string
		if items, ok := filters[b.ID]; ok {
			if len(items) == 0 {
				continue
			}
			decorated := make([]string, len(items))
			for i, item := range items {
				decorated[i] = b.Prefix + item + b.Suffix
			}
			value = strings.Join(decorated, ";")
		} else {
			value = b.Prefix + b.ID + b.Suffix
		}

		out = append(out, CompiledDimension{
			ID:        b.ID,
			Resource:  b.Resource,
			Type:      axisFor(b, overrides),
			Dimension: b.Dimension,
			Value:     value,
		})
	}
	return out
}

func axisFor(b models.DimensionBinding, overrides models.Overrides) string {
	if o, ok := overrides[b.ID]; ok && (o == models.AxisDimension || o == models.AxisFilter) {
		return o
	}
	if b.Type == "" {
		return models.AxisDimension
	}
	return b.Type
}

// SerializeParams groups compiled dimensions by (type, dimension) in first
// seen order. Groups with a dimension produce one "type=dimension:v1;v2"
// parameter; bindings without a dimension produce "type=value" each.
func SerializeParams(compiled []CompiledDimension) []string {
	type groupKey struct{ axis, dimension string }

	var order []groupKey
	groups := make(map[groupKey][]string)
	for _, c := range compiled {
		k := groupKey{axis: c.Type, dimension: c.Dimension}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c.Value)
	}

	params := make([]string, 0, len(order))
	for _, k := range order {
		values := groups[k]
		if k.dimension == "" {
			for _, v := range values {
				params = append(params, k.axis+"="+v)
			}
			continue
		}
		params = append(params, k.axis+"="+k.dimension+":"+strings.Join(values, ";"))
	}
	return params
}
