// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/dashforge/internal/executor"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/store"
)

var errTransport = errors.New("transport failed")

func analytics(rows ...[]interface{}) *models.RawPayload {
	return &models.RawPayload{
		Kind: models.PayloadAnalytics,
		Grid: &models.Grid{
			Headers: []models.GridHeader{{Name: "dx"}, {Name: "ou"}, {Name: "value"}},
			Rows:    rows,
		},
		Items: map[string]models.MetadataItem{"dx1": {Name: "ANC 1"}},
	}
}

// fakeExecutor serves payloads by resource path and can fail or block by
// data source id.
type fakeExecutor struct {
	mu       sync.Mutex
	paths    []string
	payloads map[string]*models.RawPayload
	failing  map[string]bool
	denErr   error
	block    map[string]chan struct{}
}

func (f *fakeExecutor) Execute(ctx context.Context, ds models.DataSource, q query.IndicatorQuery, _ models.GlobalFilters) (executor.SidePayloads, error) {
	f.mu.Lock()
	f.paths = append(f.paths, q.Numerator, q.Denominator)
	gate := f.block[q.Indicator.ID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return executor.SidePayloads{}, ctx.Err()
		}
	}
	if f.failing[ds.ID] {
		return executor.SidePayloads{}, errTransport
	}

	out := executor.SidePayloads{Numerator: f.payloads[q.Numerator]}
	if q.Denominator != "" {
		if f.denErr != nil {
			out.DenominatorErr = f.denErr
		} else {
			out.Denominator = f.payloads[q.Denominator]
		}
	}
	return out, nil
}

func analyticsSide(id string) *models.IndicatorSide {
	return &models.IndicatorSide{
		Type: models.SideAnalytics,
		DataDimensions: models.DimensionSet{
			{ID: id, Resource: "de", Dimension: "dx", Type: "dimension"},
		},
	}
}

func newPipeline(f *fakeExecutor) (*Pipeline, *store.Store) {
	st := store.New()
	return New(query.NewGenerator(nil), f, st), st
}

func TestResolve_EndToEndNumeratorOnly(t *testing.T) {
	t.Parallel()

	// dx is grouped like any other dimension binding: dimension=dx:<ids>.
	const path = "analytics.json?dimension=dx:dx1&aggregationType=MAX"
	num := analytics([]interface{}{"dx1", "ouA", "12"}, []interface{}{"dx1", "ouB", "30"})
	f := &fakeExecutor{payloads: map[string]*models.RawPayload{path: num}}
	p, st := newPipeline(f)

	req := models.ResolveRequest{Indicators: []models.Indicator{{
		ID:        "ind1",
		Numerator: analyticsSide("dx1"),
		Factor:    "1",
	}}}

	ds, err := p.Resolve(context.Background(), "viz1", req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(f.paths) != 2 || f.paths[0] != path || f.paths[1] != "" {
		t.Fatalf("paths = %q", f.paths)
	}

	want := []models.NormalizedRow{
		{"dx": "dx1", "ou": "ouA", "value": "12"},
		{"dx": "dx1", "ou": "ouB", "value": "30"},
	}
	if !reflect.DeepEqual(ds.Data, want) {
		t.Errorf("rows = %v, want %v", ds.Data, want)
	}
	if ds.Metadata["dx1"].Name != "ANC 1" {
		t.Errorf("metadata = %v", ds.Metadata)
	}
	if e, _ := st.Get("viz1"); e.Status != store.StatusReady || e.Dataset != ds {
		t.Errorf("store entry = %+v", e)
	}
}

func TestResolve_RatioWithFactor(t *testing.T) {
	t.Parallel()

	numPath := "analytics.json?dimension=dx:n&aggregationType=MAX"
	denPath := "analytics.json?dimension=dx:d"
	f := &fakeExecutor{payloads: map[string]*models.RawPayload{
		numPath: analytics([]interface{}{"x", "ouA", "50"}),
		denPath: analytics([]interface{}{"x", "ouA", "100"}),
	}}
	p, _ := newPipeline(f)

	req := models.ResolveRequest{Indicators: []models.Indicator{{
		ID:          "ind1",
		Numerator:   analyticsSide("n"),
		Denominator: analyticsSide("d"),
		Factor:      "*100",
	}}}

	ds, err := p.Resolve(context.Background(), "viz1", req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ds.Data) != 1 || ds.Data[0]["value"] != 50.0 {
		t.Errorf("rows = %v, want value 50", ds.Data)
	}
}

func TestResolve_DenominatorFailureFallsBackToNumerator(t *testing.T) {
	t.Parallel()

	numPath := "analytics.json?dimension=dx:n&aggregationType=MAX"
	f := &fakeExecutor{
		payloads: map[string]*models.RawPayload{numPath: analytics([]interface{}{"x", "ouA", "7"})},
		denErr:   errTransport,
	}
	p, _ := newPipeline(f)

	req := models.ResolveRequest{Indicators: []models.Indicator{{
		ID:          "ind1",
		Numerator:   analyticsSide("n"),
		Denominator: analyticsSide("d"),
	}}}

	ds, err := p.Resolve(context.Background(), "viz1", req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ds.Data) != 1 || ds.Data[0]["value"] != "7" {
		t.Errorf("rows = %v, want numerator passthrough", ds.Data)
	}
}

func TestResolve_CompilationErrorMakesNoCalls(t *testing.T) {
	t.Parallel()

	f := &fakeExecutor{}
	p, st := newPipeline(f)

	req := models.ResolveRequest{Indicators: []models.Indicator{{
		ID: "ind1",
		Numerator: &models.IndicatorSide{
			Type:           models.SideSQLView,
			DataDimensions: models.DimensionSet{{ID: "a"}, {ID: "b"}},
		},
	}}}

	_, err := p.Resolve(context.Background(), "viz1", req)
	var ce *query.CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CompilationError", err)
	}
	if len(f.paths) != 0 {
		t.Errorf("executor called %d times", len(f.paths)/2)
	}
	if e, _ := st.Get("viz1"); e.Status != store.StatusError {
		t.Errorf("store status = %s", e.Status)
	}
}

func TestResolve_FailureIsolatedPerVisualization(t *testing.T) {
	t.Parallel()

	path := "analytics.json?dimension=dx:dx1&aggregationType=MAX"
	f := &fakeExecutor{
		payloads: map[string]*models.RawPayload{path: analytics([]interface{}{"dx1", "ouA", "1"})},
		failing:  map[string]bool{"broken": true},
	}
	p, st := newPipeline(f)

	request := func(dsID string) models.ResolveRequest {
		return models.ResolveRequest{
			Indicators: []models.Indicator{{ID: "ind1", Numerator: analyticsSide("dx1"), DataSource: dsID}},
			DataSources: []models.DataSource{{
				ID:             dsID,
				Type:           models.DataSourceDHIS2,
				Authentication: models.Authentication{URL: "https://" + dsID},
			}},
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = p.Resolve(context.Background(), "failing", request("broken"))
	}()
	go func() {
		defer wg.Done()
		_, _ = p.Resolve(context.Background(), "healthy", request("fine"))
	}()
	wg.Wait()

	bad, _ := st.Get("failing")
	if bad.Status != store.StatusError || bad.Error == "" {
		t.Errorf("failing = %+v", bad)
	}
	good, _ := st.Get("healthy")
	if good.Status != store.StatusReady || good.Dataset == nil || len(good.Dataset.Data) != 1 {
		t.Errorf("healthy = %+v", good)
	}
}

func TestResolve_StaleResultNotPublished(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	f := &fakeExecutor{
		payloads: map[string]*models.RawPayload{
			"analytics.json?dimension=dx:k1&aggregationType=MAX": analytics([]interface{}{"k1", "ou", "1"}),
			"analytics.json?dimension=dx:k2&aggregationType=MAX": analytics([]interface{}{"k2", "ou", "2"}),
		},
		block: map[string]chan struct{}{"old": gate},
	}
	p, st := newPipeline(f)

	k1 := models.ResolveRequest{Indicators: []models.Indicator{{ID: "old", Numerator: analyticsSide("k1")}}}
	k2 := models.ResolveRequest{Indicators: []models.Indicator{{ID: "new", Numerator: analyticsSide("k2")}}}

	done := make(chan error, 1)
	go func() {
		_, err := p.Resolve(context.Background(), "viz1", k1)
		done <- err
	}()

	// Wait until K1 has taken its ticket and is blocked in the executor.
	for {
		f.mu.Lock()
		n := len(f.paths)
		f.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := p.Resolve(context.Background(), "viz1", k2); err != nil {
		t.Fatalf("K2 Resolve: %v", err)
	}
	close(gate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("K1 err = %v, want ErrSuperseded", err)
	}
	e, _ := st.Get("viz1")
	if e.Dataset == nil || e.Dataset.Data[0]["dx"] != "k2" {
		t.Errorf("store holds %+v, want K2 result", e.Dataset)
	}
}

func TestResolve_IndicatorsInOrder(t *testing.T) {
	t.Parallel()

	f := &fakeExecutor{payloads: map[string]*models.RawPayload{
		"analytics.json?dimension=dx:a&aggregationType=MAX": analytics([]interface{}{"a", "ou", "1"}),
		"analytics.json?dimension=dx:b&aggregationType=MAX": analytics([]interface{}{"b", "ou", "2"}),
	}}
	p, _ := newPipeline(f)

	req := models.ResolveRequest{Indicators: []models.Indicator{
		{ID: "i2", Numerator: analyticsSide("b")},
		{ID: "i1", Numerator: analyticsSide("a")},
	}}
	ds, err := p.Resolve(context.Background(), "viz1", req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ds.Data) != 2 || ds.Data[0]["dx"] != "b" || ds.Data[1]["dx"] != "a" {
		t.Errorf("rows = %v", ds.Data)
	}
	if !reflect.DeepEqual(ds.Keys[:2], []string{"i2", "i1"}) {
		t.Errorf("keys = %v", ds.Keys)
	}
}

func TestTriggerFromContext(t *testing.T) {
	t.Parallel()

	if got := TriggerFromContext(context.Background()); got != TriggerRequest {
		t.Errorf("default trigger = %s", got)
	}
	if got := TriggerFromContext(WithTrigger(context.Background(), TriggerFocus)); got != TriggerFocus {
		t.Errorf("trigger = %s", got)
	}
}
