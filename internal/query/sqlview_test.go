// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/dashforge/internal/expr"
	"github.com/tomtom215/dashforge/internal/models"
)

func TestSeedVariables(t *testing.T) {
	t.Parallel()

	sql := "select * from t where pe = '${period}' and ou = '${ orgunit }' or pe2 = '${period}' and ${}"
	got := SeedVariables(sql)
	want := []string{"period", "orgunit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SeedVariables = %v, want %v", got, want)
	}
}

func TestResolveVariables(t *testing.T) {
	t.Parallel()

	filters := models.GlobalFilters{
		"PERIOD": {"2024Q1", "2024Q2"},
		"YEAR":   {"2024"},
		"OU":     {"abc"},
	}

	tests := []struct {
		name        string
		expressions map[string]models.Expression
		seeds       []string
		want        string
	}{
		{
			name:  "seeds default to NULL",
			seeds: []string{"a", "b"},
			want:  "var=a:NULL&var=b:NULL",
		},
		{
			name:        "global binding joins with dash",
			expressions: map[string]models.Expression{"pe": {Value: "PERIOD", IsGlobal: true}},
			seeds:       []string{"pe"},
			want:        "var=pe:2024Q1-2024Q2",
		},
		{
			name:        "global flag without filter falls through to literal",
			expressions: map[string]models.Expression{"x": {Value: "missing", IsGlobal: true}},
			want:        "var=x:missing",
		},
		{
			name:        "substring substitution",
			expressions: map[string]models.Expression{"unit": {Value: "OU_children"}},
			want:        "var=unit:abc_children",
		},
		{
			name:        "calc marker evaluated",
			expressions: map[string]models.Expression{"prev": {Value: "calc YEAR-1"}},
			want:        "var=prev:2023",
		},
		{
			name:        "text before calc kept",
			expressions: map[string]models.Expression{"span": {Value: "FYcalcYEAR+1"}},
			want:        "var=span:FY2025",
		},
		{
			name:        "literal value",
			expressions: map[string]models.Expression{"k": {Value: "fixed"}},
			seeds:       []string{"k", "other"},
			want:        "var=k:fixed&var=other:NULL",
		},
		{
			name: "extra expressions follow seeds in name order",
			expressions: map[string]models.Expression{
				"zz": {Value: "1"},
				"aa": {Value: "2"},
			},
			seeds: []string{"seed"},
			want:  "var=seed:NULL&var=aa:2&var=zz:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveVariables(tt.expressions, filters, tt.seeds)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveVariables = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveVariables_Deterministic(t *testing.T) {
	t.Parallel()

	expressions := map[string]models.Expression{
		"c": {Value: "PE", IsGlobal: true},
		"b": {Value: "OU_x"},
		"a": {Value: "lit"},
		"d": {Value: "calc PE*2"},
	}
	filters := models.GlobalFilters{"PE": {"3"}, "OU": {"o1", "o2"}}
	seeds := []string{"d", "b"}

	first, err1 := ResolveVariables(expressions, filters, seeds)
	for i := 0; i < 20; i++ {
		again, err2 := ResolveVariables(expressions, filters, seeds)
		if again != first || (err1 == nil) != (err2 == nil) {
			t.Fatalf("run %d: %q != %q", i, again, first)
		}
	}
}

func TestResolveVariables_CalcFailureRecovered(t *testing.T) {
	t.Parallel()

	expressions := map[string]models.Expression{
		"bad":  {Value: "calc YEAR +* 2"},
		"good": {Value: "ok"},
	}
	filters := models.GlobalFilters{"YEAR": {"2024"}}

	got, err := ResolveVariables(expressions, filters, nil)
	if got != "var=bad:NULL&var=good:ok" {
		t.Errorf("ResolveVariables = %q", got)
	}
	var evalErr *expr.EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *expr.EvaluationError, got %v", err)
	}
}

func TestMatchGlobalKeys(t *testing.T) {
	t.Parallel()

	filters := models.GlobalFilters{"OU": {"x"}, "OUG": {"y"}, "PE": {"z"}, "": {"empty"}}

	got := MatchGlobalKeys("OUG_total", filters)
	want := []string{"OU", "OUG"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchGlobalKeys = %v, want %v", got, want)
	}
	if keys := MatchGlobalKeys("nothing", filters); len(keys) != 0 {
		t.Errorf("expected no matches, got %v", keys)
	}
}
