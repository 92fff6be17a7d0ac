// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestDimensionSet_UnmarshalObjectKeepsOrder(t *testing.T) {
	t.Parallel()

	raw := `{
		"zeta": {"resource": "de", "dimension": "dx", "type": "dimension"},
		"alpha": {"resource": "ou", "dimension": "ou", "type": "filter", "prefix": "LEVEL-"},
		"mid": {"id": "explicit", "resource": "pe", "dimension": "pe", "type": "dimension"}
	}`

	var set DimensionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []string{"zeta", "alpha", "explicit"}
	if got := set.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if set[1].Prefix != "LEVEL-" {
		t.Errorf("prefix = %q, want LEVEL-", set[1].Prefix)
	}
}

func TestDimensionSet_UnmarshalArray(t *testing.T) {
	t.Parallel()

	var set DimensionSet
	if err := json.Unmarshal([]byte(`[{"id":"b"},{"id":"a"}]`), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := set.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Keys() = %v", got)
	}
}

func TestDimensionSet_UnmarshalNestedValues(t *testing.T) {
	t.Parallel()

	raw := `{"x":{"label":"a {b} [c]","resource":"de"},"y":{"resource":"pe"}}`
	var set DimensionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := set.Keys(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Keys() = %v", got)
	}
	if set[0].Label != "a {b} [c]" {
		t.Errorf("label = %q", set[0].Label)
	}
}

func TestDimensionSet_UnmarshalInvalid(t *testing.T) {
	t.Parallel()

	var set DimensionSet
	if err := json.Unmarshal([]byte(`"nope"`), &set); err == nil {
		t.Error("expected error for string input")
	}
}

func TestDimensionSet_MarshalRoundTripOrder(t *testing.T) {
	t.Parallel()

	set := DimensionSet{{ID: "b", Resource: "de"}, {ID: "a", Resource: "ou"}}
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back DimensionSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Keys(), []string{"b", "a"}) {
		t.Errorf("order lost: %s", data)
	}
}

func TestIndicator_Unmarshal(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": "ind1",
		"numerator": {
			"type": "ANALYTICS",
			"dataDimensions": {"dx1": {"resource": "de", "dimension": "dx", "type": "dimension"}}
		},
		"factor": "*100",
		"dataSource": "ds1"
	}`

	var ind Indicator
	if err := json.Unmarshal([]byte(raw), &ind); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ind.Numerator == nil || ind.Numerator.Type != SideAnalytics {
		t.Fatalf("numerator not decoded: %+v", ind.Numerator)
	}
	if ind.Denominator != nil {
		t.Error("denominator should be nil")
	}
	if b, ok := ind.Numerator.DataDimensions.Get("dx1"); !ok || b.Dimension != "dx" {
		t.Errorf("binding dx1 = %+v, %v", b, ok)
	}
	if ind.EffectiveFactor() != "*100" {
		t.Errorf("factor = %q", ind.EffectiveFactor())
	}
}

func TestIndicator_EffectiveFactorDefault(t *testing.T) {
	t.Parallel()

	ind := Indicator{ID: "x"}
	if ind.EffectiveFactor() != IdentityFactor {
		t.Errorf("EffectiveFactor() = %q, want %q", ind.EffectiveFactor(), IdentityFactor)
	}
}

func TestDataSources_Lookup(t *testing.T) {
	t.Parallel()

	sources := NewDataSources([]DataSource{
		{ID: "ext", Type: DataSourceDHIS2, Authentication: Authentication{URL: "https://play.example.org"}},
	})

	tests := []struct {
		name        string
		id          string
		wantCurrent bool
	}{
		{"known external", "ext", false},
		{"unknown falls back to current", "missing", true},
		{"empty falls back to current", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sources.Lookup(tt.id); got.IsCurrentDHIS2 != tt.wantCurrent {
				t.Errorf("Lookup(%q).IsCurrentDHIS2 = %v, want %v", tt.id, got.IsCurrentDHIS2, tt.wantCurrent)
			}
		})
	}
}

func TestDecodeListGrid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantRows int
		wantGrid bool
	}{
		{"wrapped", `{"listGrid":{"headers":[{"name":"a"}],"rows":[["1"]]}}`, 1, true},
		{"bare", `{"headers":[{"name":"a"}],"rows":[["1"],["2"]]}`, 2, true},
		{"empty object", `{}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := DecodeListGrid([]byte(tt.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if p.Kind != PayloadListGrid {
				t.Errorf("kind = %s", p.Kind)
			}
			if (p.Grid != nil) != tt.wantGrid {
				t.Fatalf("grid present = %v, want %v", p.Grid != nil, tt.wantGrid)
			}
			if p.Grid != nil && len(p.Grid.Rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(p.Grid.Rows), tt.wantRows)
			}
		})
	}
}

func TestDecodeAnalytics(t *testing.T) {
	t.Parallel()

	body := `{"headers":[{"name":"dx"},{"name":"value"}],"rows":[["abc","12"]],
		"metaData":{"items":{"abc":{"name":"ANC 1st visit"}}}}`

	p, err := DecodeAnalytics([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Kind != PayloadAnalytics || p.Grid == nil {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Items["abc"].Name != "ANC 1st visit" {
		t.Errorf("items = %+v", p.Items)
	}
}

func TestDecodeGridPayload_Dispatch(t *testing.T) {
	t.Parallel()

	p, err := DecodeGridPayload("sqlViews/abc/data.json?paging=false", []byte(`{"listGrid":{"headers":[],"rows":[]}}`))
	if err != nil || p.Kind != PayloadListGrid {
		t.Errorf("sql view path: kind=%s err=%v", p.Kind, err)
	}
	p, err = DecodeGridPayload("analytics.json?dimension=dx:a", []byte(`{"headers":[],"rows":[]}`))
	if err != nil || p.Kind != PayloadAnalytics {
		t.Errorf("analytics path: kind=%s err=%v", p.Kind, err)
	}
}

func TestDecodeSearch(t *testing.T) {
	t.Parallel()

	aggs := `{"aggregations":{"by_district":{"buckets":[{"key":"d1","doc_count":3}]}}}`
	p, err := DecodeSearch([]byte(aggs))
	if err != nil || p.Kind != PayloadBuckets {
		t.Fatalf("aggregations: kind=%s err=%v", p.Kind, err)
	}

	hits := `{"hits":{"hits":[{"_id":"1","_source":{"a":1}},{"_id":"2","_source":{"b":2}}]}}`
	p, err = DecodeSearch([]byte(hits))
	if err != nil || p.Kind != PayloadHits {
		t.Fatalf("hits: kind=%s err=%v", p.Kind, err)
	}
	if len(p.Hits) != 2 {
		t.Errorf("hits = %d, want 2", len(p.Hits))
	}
}

func TestGlobalDimensions(t *testing.T) {
	t.Parallel()

	g := DefaultGlobalDimensions()
	if !g.IsGlobal("m5D13FqKZwN") {
		t.Error("period global id should be known")
	}
	if g.IsGlobal("dx1") {
		t.Error("dx1 should not be global")
	}
	ids := g.IDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] > ids[i] {
			t.Fatalf("IDs() not sorted: %v", ids)
		}
	}
}
