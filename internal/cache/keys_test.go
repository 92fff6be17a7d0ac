// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package cache

import (
	"reflect"
	"testing"

	"github.com/tomtom215/dashforge/internal/models"
)

func keyTestIndicators() []models.Indicator {
	return []models.Indicator{
		{
			ID: "ind1",
			Numerator: &models.IndicatorSide{
				Type: models.SideAnalytics,
				DataDimensions: models.DimensionSet{
					{ID: "dx1", Dimension: "dx"},
					{ID: "PE", Dimension: "pe"},
				},
			},
			Denominator: &models.IndicatorSide{
				Type: models.SideSQLView,
				Expressions: map[string]models.Expression{
					"b": {Value: "OU_children"},
					"a": {Value: "PE", IsGlobal: true},
					"c": {Value: "literal"},
				},
				DataDimensions: models.DimensionSet{{ID: "view1"}},
			},
		},
		{ID: "ind2"},
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	filters := models.GlobalFilters{"PE": {"2024Q1", "2024Q2"}, "OU": {"ouA"}}
	overrides := models.Overrides{"dx1": "filter", "PE": "dimension"}

	got := Keys(keyTestIndicators(), filters, overrides)
	want := []string{
		"ind1", "ind2",
		"dx1", "PE=2024Q1;2024Q2",
		"view1", "a:2024Q1;2024Q2", "b:OU_children[OU=ouA]", "c:literal",
		"PE@dimension", "dx1@filter",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keys = %v\nwant %v", got, want)
	}
}

func TestKeys_ChangeWithFilters(t *testing.T) {
	t.Parallel()

	inds := keyTestIndicators()
	a := Fingerprint(Keys(inds, models.GlobalFilters{"PE": {"2024Q1"}}, nil))
	b := Fingerprint(Keys(inds, models.GlobalFilters{"PE": {"2024Q2"}}, nil))
	c := Fingerprint(Keys(inds, models.GlobalFilters{"PE": {"2024Q1"}}, nil))

	if a == b {
		t.Error("Expected fingerprint to change with the period selection")
	}
	if a != c {
		t.Error("Expected identical snapshots to share a fingerprint")
	}
}

func TestKeys_KeepBindingOfEachValue(t *testing.T) {
	t.Parallel()

	inds := []models.Indicator{{
		ID: "ind",
		Numerator: &models.IndicatorSide{
			Type: models.SideAnalytics,
			DataDimensions: models.DimensionSet{
				{ID: "OU", Dimension: "ou"},
				{ID: "PE", Dimension: "pe"},
			},
		},
	}}

	tests := []struct {
		name string
		a, b models.GlobalFilters
	}{
		{
			name: "value dropped from one global while another holds it",
			a:    models.GlobalFilters{"OU": {"x", "y"}, "PE": {"y"}},
			b:    models.GlobalFilters{"OU": {"x"}, "PE": {"y"}},
		},
		{
			name: "value moved between globals",
			a:    models.GlobalFilters{"OU": {"x", "y"}, "PE": {"z"}},
			b:    models.GlobalFilters{"OU": {"x"}, "PE": {"y", "z"}},
		},
		{
			name: "values split differently",
			a:    models.GlobalFilters{"OU": {"x;y"}, "PE": {"z"}},
			b:    models.GlobalFilters{"OU": {"x"}, "PE": {"y;z"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ka, kb := Keys(inds, tt.a, nil), Keys(inds, tt.b, nil)
			if Fingerprint(ka) == Fingerprint(kb) {
				t.Errorf("same fingerprint for different filters: %v vs %v", ka, kb)
			}
		})
	}
}

func TestKeys_OverrideDistinctFromFilter(t *testing.T) {
	t.Parallel()

	inds := []models.Indicator{{
		ID: "ind",
		Numerator: &models.IndicatorSide{
			Type:           models.SideAnalytics,
			DataDimensions: models.DimensionSet{{ID: "PE", Dimension: "pe"}},
		},
	}}

	withFilter := Keys(inds, models.GlobalFilters{"PE": {"filter"}}, nil)
	withOverride := Keys(inds, nil, models.Overrides{"PE": "filter"})
	if reflect.DeepEqual(withFilter, withOverride) {
		t.Errorf("filter and override produced the same keys: %v", withFilter)
	}
}

func TestKeys_Empty(t *testing.T) {
	t.Parallel()

	if got := Keys(nil, nil, nil); len(got) != 0 {
		t.Errorf("Keys(nil) = %v", got)
	}
}
