// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package arithmetic

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/dashforge/internal/expr"
	"github.com/tomtom215/dashforge/internal/models"
)

func TestCombine_LadderPrecedence(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"ou": "a", "value": 50.0}}
	den := []models.NormalizedRow{{"ou": "a", "value": 100.0}}

	tests := []struct {
		name   string
		factor string
		custom bool
		want   float64
	}{
		{"identity ratio", "1", false, 0.5},
		{"empty factor is identity", "", false, 0.5},
		{"scaled ratio", "*100", false, 50},
		{"custom formula", "x-y", true, -50},
		{"custom beats ratio", "x+y", true, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ind := &models.Indicator{ID: "i", Factor: tt.factor, Custom: tt.custom}
			got := Combine(ind, num, den)
			if len(got.Rows) != 1 {
				t.Fatalf("rows = %v", got.Rows)
			}
			if got.Rows[0]["value"] != tt.want {
				t.Errorf("value = %v, want %v", got.Rows[0]["value"], tt.want)
			}
		})
	}
}

func TestCombine_StringCellsFromGrid(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"dx": "abc", "ou": "o1", "value": "25"}}
	den := []models.NormalizedRow{{"ou": "o1", "dx": "abc", "value": "50"}}

	got := Combine(&models.Indicator{Factor: "*100"}, num, den)
	if got.Rows[0]["value"] != 50.0 {
		t.Errorf("value = %v, want 50", got.Rows[0]["value"])
	}
	if got.Rows[0]["dx"] != "abc" || got.Rows[0]["ou"] != "o1" {
		t.Errorf("non-value columns must be kept: %v", got.Rows[0])
	}
}

func TestCombine_TotalFallback(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"ou": "a", "total": 30.0}}
	den := []models.NormalizedRow{{"ou": "a", "value": 1.0, "total": 60.0}}

	got := Combine(&models.Indicator{Factor: "1"}, num, den)
	if got.Rows[0]["value"] != 0.5 {
		t.Errorf("value = %v, want 0.5", got.Rows[0]["value"])
	}
}

func TestCombine_NoMatchEmitsZero(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{
		{"ou": "a", "value": 10.0},
		{"ou": "b", "value": 20.0},
	}
	den := []models.NormalizedRow{{"ou": "a", "value": 5.0}}

	got := Combine(&models.Indicator{Factor: "1"}, num, den)
	if got.Rows[0]["value"] != 2.0 {
		t.Errorf("matched value = %v, want 2", got.Rows[0]["value"])
	}
	if got.Rows[1]["value"] != Sentinel {
		t.Errorf("unmatched value = %v, want 0", got.Rows[1]["value"])
	}
	if got.Unmatched != 1 {
		t.Errorf("Unmatched = %d, want 1", got.Unmatched)
	}
}

func TestCombine_NoNumericColumnsEmitsZero(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"ou": "a", "value": ""}}
	den := []models.NormalizedRow{{"ou": "a", "value": "3"}}

	got := Combine(&models.Indicator{Factor: "1"}, num, den)
	if got.Rows[0]["value"] != float64(Sentinel) {
		t.Errorf("value = %v, want 0", got.Rows[0]["value"])
	}
}

func TestCombine_DivideByZeroRecovered(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"ou": "a", "value": 5.0}}
	den := []models.NormalizedRow{{"ou": "a", "value": 0.0}}

	for _, ind := range []*models.Indicator{
		{Factor: "1"},
		{Factor: "x/y", Custom: true},
	} {
		got := Combine(ind, num, den)
		if got.Rows[0]["value"] != float64(Sentinel) {
			t.Errorf("factor %q: value = %v, want sentinel", ind.Factor, got.Rows[0]["value"])
		}
		if len(got.Recovered) != 1 || !errors.Is(got.Recovered[0], expr.ErrNonFinite) {
			t.Errorf("factor %q: Recovered = %v", ind.Factor, got.Recovered)
		}
	}
}

func TestCombine_NumeratorOnlyIdentityPassThrough(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"dx": "dx1", "value": "12"}, {"dx": "dx2", "value": "7"}}
	got := Combine(&models.Indicator{Factor: "1"}, num, nil)
	if !reflect.DeepEqual(got.Rows, num) {
		t.Errorf("rows = %v, want %v", got.Rows, num)
	}

	got.Rows[0]["value"] = "changed"
	if num[0]["value"] != "12" {
		t.Error("input rows must not be aliased")
	}
}

func TestCombine_NumeratorOnlyScaled(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"dx": "a", "value": "0.25"}, {"dx": "b", "total": 2.0}, {"dx": "c"}}
	got := Combine(&models.Indicator{Factor: "*100"}, num, nil)

	if got.Rows[0]["value"] != 25.0 {
		t.Errorf("value row = %v", got.Rows[0])
	}
	if got.Rows[1]["total"] != 200.0 {
		t.Errorf("total row = %v", got.Rows[1])
	}
	if _, ok := got.Rows[2]["value"]; ok {
		t.Errorf("row without numbers should be unchanged: %v", got.Rows[2])
	}
}

func TestCombine_NumeratorOnlyCustom(t *testing.T) {
	t.Parallel()

	num := []models.NormalizedRow{{"value": 4.0}}

	got := Combine(&models.Indicator{Factor: "x*2", Custom: true}, num, nil)
	if got.Rows[0]["value"] != 8.0 {
		t.Errorf("value = %v, want 8", got.Rows[0]["value"])
	}

	got = Combine(&models.Indicator{Factor: "x-y", Custom: true}, num, nil)
	if got.Rows[0]["value"] != float64(Sentinel) || len(got.Recovered) != 1 {
		t.Errorf("template using y without denominator: %v, %v", got.Rows[0], got.Recovered)
	}
}

func TestSignature(t *testing.T) {
	t.Parallel()

	a := models.NormalizedRow{"ou": "o1", "pe": "2024", "value": 1, "total": 9}
	b := models.NormalizedRow{"pe": "2024", "ou": "o1", "value": 5}
	if Signature(a) != Signature(b) {
		t.Errorf("signatures differ: %q vs %q", Signature(a), Signature(b))
	}
	if Signature(a) != "2024o1" {
		t.Errorf("Signature = %q", Signature(a))
	}
}

func TestApplySpecialCase(t *testing.T) {
	t.Parallel()

	rows := []models.NormalizedRow{{"value": "50"}}

	got, applied := ApplySpecialCase("AHxO7yowduX", "FOgNEFzg210", rows)
	if !applied {
		t.Fatal("expected special case to apply")
	}
	if len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}
	for i, r := range got {
		if r[DayColumn] != WorkingDays[i] || r["value"] != 10.0 {
			t.Errorf("row %d = %v", i, r)
		}
	}

	same, applied := ApplySpecialCase("other", "FOgNEFzg210", rows)
	if applied || !reflect.DeepEqual(same, rows) {
		t.Error("unrelated visualization must be left alone")
	}
}
