// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package cache

import (
	"sort"
	"strings"

	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/query"
)

// Keys derives the query key for a visualization. Entries are, in order:
// indicator ids; one entry per data dimension binding, "bindingId=v1;v2"
// when a global filter resolves it, else the bare id; one "column:resolved"
// entry per SQL-view expression; and "bindingId@axis" per override. Only
// identical entries are collapsed, so the key keeps which binding each value
// came from. Two snapshots that would compile to the same queries produce
// the same keys.
func Keys(indicators []models.Indicator, filters models.GlobalFilters, overrides models.Overrides) []string {
	b := keyBuilder{seen: make(map[string]bool)}

	for i := range indicators {
		b.add(indicators[i].ID)
	}
	for i := range indicators {
		b.addSide(indicators[i].Numerator, filters)
		b.addSide(indicators[i].Denominator, filters)
	}

	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.add(id + "@" + overrides[id])
	}
	return b.keys
}

// Fingerprint condenses keys into a single cache key.
func Fingerprint(keys []string) string {
	return GenerateKey("visualization", keys)
}

type keyBuilder struct {
	keys []string
	seen map[string]bool
}

func (b *keyBuilder) add(entry string) {
	if b.seen[entry] {
		return
	}
	b.seen[entry] = true
	b.keys = append(b.keys, entry)
}

func (b *keyBuilder) addSide(side *models.IndicatorSide, filters models.GlobalFilters) {
	if side == nil {
		return
	}

	for _, binding := range side.DataDimensions {
		if items, ok := filters[binding.ID]; ok {
			b.add(binding.ID + "=" + strings.Join(items, ";"))
			continue
		}
		b.add(binding.ID)
	}

	columns := make([]string, 0, len(side.Expressions))
	for column := range side.Expressions {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		b.add(column + ":" + resolvedExpression(side.Expressions[column], filters))
	}
}

// resolvedExpression renders e with the filter values it would pick up:
// the joined items for a global expression, else the raw value followed by
// "[id=v1;v2]" for each global id it contains.
func resolvedExpression(e models.Expression, filters models.GlobalFilters) string {
	if items, ok := filters[e.Value]; ok && e.IsGlobal {
		return strings.Join(items, ";")
	}
	var sb strings.Builder
	sb.WriteString(e.Value)
	for _, k := range query.MatchGlobalKeys(e.Value, filters) {
		sb.WriteString("[" + k + "=" + strings.Join(filters[k], ";") + "]")
	}
	return sb.String()
}
