// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/dashforge/internal/cache"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/transport"
)

const analyticsBody = `{"headers":[{"name":"dx"},{"name":"value"}],"rows":[["dx1","10"]]}`

var errBackend = errors.New("backend down")

type fakeBatcher struct {
	mu      sync.Mutex
	calls   []map[string]string
	failing map[string]bool
}

func (f *fakeBatcher) QueryBatch(_ context.Context, resources map[string]string) map[string]transport.BatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, resources)
	out := make(map[string]transport.BatchResult, len(resources))
	for k, path := range resources {
		if f.failing[path] {
			out[k] = transport.BatchResult{Err: errBackend}
			continue
		}
		out[k] = transport.BatchResult{Body: []byte(analyticsBody)}
	}
	return out
}

type fakeGetter struct {
	mu      sync.Mutex
	paths   []string
	failing map[string]bool
}

func (f *fakeGetter) HTTPGet(_ context.Context, _ models.DataSource, path string) ([]byte, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.failing[path] {
		return nil, errBackend
	}
	return []byte(analyticsBody), nil
}

func (f *fakeGetter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

type fakeSearcher struct {
	mu       sync.Mutex
	requests []models.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req models.SearchRequest) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return []byte(`{"hits":{"hits":[{"_id":"1","_source":{"district":"d1","value":3}}]}}`), nil
}

func twoSided() query.IndicatorQuery {
	return query.IndicatorQuery{
		Indicator:   models.Indicator{ID: "ind1"},
		Numerator:   "analytics.json?dimension=dx:num&aggregationType=MAX",
		Denominator: "analytics.json?dimension=dx:den",
	}
}

var (
	current  = models.DataSource{ID: "cur", Type: models.DataSourceDHIS2, IsCurrentDHIS2: true}
	external = models.DataSource{ID: "ext", Type: models.DataSourceDHIS2, Authentication: models.Authentication{URL: "https://x"}}
)

func TestExecute_CurrentInstanceBatchesSides(t *testing.T) {
	t.Parallel()

	b := &fakeBatcher{}
	e := New(b, nil, nil, cache.Noop{})

	got, err := e.Execute(context.Background(), current, twoSided(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(b.calls) != 1 || len(b.calls[0]) != 2 {
		t.Fatalf("batch calls = %v, want one call with both sides", b.calls)
	}
	if got.Numerator == nil || got.Denominator == nil {
		t.Fatalf("payloads = %+v", got)
	}
	if got.Numerator.Kind != models.PayloadAnalytics || got.Numerator.Grid == nil {
		t.Errorf("numerator not decoded: %+v", got.Numerator)
	}
}

func TestExecute_CurrentInstanceFailures(t *testing.T) {
	t.Parallel()

	q := twoSided()

	t.Run("denominator failure keeps numerator", func(t *testing.T) {
		t.Parallel()
		e := New(&fakeBatcher{failing: map[string]bool{q.Denominator: true}}, nil, nil, cache.Noop{})
		got, err := e.Execute(context.Background(), current, q, nil)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if got.Numerator == nil || got.Denominator != nil || !errors.Is(got.DenominatorErr, errBackend) {
			t.Errorf("payloads = %+v", got)
		}
	})

	t.Run("numerator failure fails indicator", func(t *testing.T) {
		t.Parallel()
		e := New(&fakeBatcher{failing: map[string]bool{q.Numerator: true}}, nil, nil, cache.Noop{})
		if _, err := e.Execute(context.Background(), current, q, nil); !errors.Is(err, errBackend) {
			t.Errorf("err = %v, want errBackend", err)
		}
	})
}

func TestExecute_ExternalFetchesBothSides(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{}
	e := New(nil, nil, g, cache.Noop{})

	got, err := e.Execute(context.Background(), external, twoSided(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if g.count() != 2 {
		t.Errorf("HTTPGet calls = %d, want 2", g.count())
	}
	if got.Numerator == nil || got.Denominator == nil {
		t.Errorf("payloads = %+v", got)
	}
}

func TestExecute_ExternalSingleSide(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{}
	e := New(nil, nil, g, cache.Noop{})
	q := query.IndicatorQuery{Indicator: models.Indicator{ID: "ind1"}, Numerator: "analytics.json?dimension=dx:a"}

	got, err := e.Execute(context.Background(), external, q, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got.Numerator == nil || got.Denominator != nil || got.DenominatorErr != nil {
		t.Errorf("payloads = %+v", got)
	}
}

func TestExecute_ExternalDenominatorFailure(t *testing.T) {
	t.Parallel()

	q := twoSided()
	e := New(nil, nil, &fakeGetter{failing: map[string]bool{q.Denominator: true}}, cache.Noop{})

	got, err := e.Execute(context.Background(), external, q, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got.Numerator == nil || got.DenominatorErr == nil {
		t.Errorf("payloads = %+v", got)
	}
}

func TestExecute_PayloadCache(t *testing.T) {
	t.Parallel()

	c := cache.New(time.Minute, 0)
	defer c.Close()

	g := &fakeGetter{}
	e := New(nil, nil, g, c)
	q := twoSided()

	for i := 0; i < 3; i++ {
		if _, err := e.Execute(context.Background(), external, q, nil); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if g.count() != 2 {
		t.Errorf("HTTPGet calls = %d, want 2 (later runs cached)", g.count())
	}

	if _, err := e.Execute(WithCacheBypass(context.Background()), external, q, nil); err != nil {
		t.Fatalf("Execute bypass: %v", err)
	}
	if g.count() != 4 {
		t.Errorf("HTTPGet calls after bypass = %d, want 4", g.count())
	}
}

func TestExecute_CurrentInstanceUsesCache(t *testing.T) {
	t.Parallel()

	c := cache.New(time.Minute, 0)
	defer c.Close()

	b := &fakeBatcher{}
	e := New(b, nil, nil, c)

	for i := 0; i < 2; i++ {
		if _, err := e.Execute(context.Background(), current, twoSided(), nil); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if len(b.calls) != 1 {
		t.Errorf("batch calls = %d, want 1", len(b.calls))
	}
}

func TestExecute_Elasticsearch(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{}
	e := New(nil, s, nil, cache.Noop{})
	ds := models.DataSource{ID: "es", Type: models.DataSourceElasticsearch}

	q := query.IndicatorQuery{Indicator: models.Indicator{
		ID: "ind1",
		Numerator: &models.IndicatorSide{
			Type:           models.SideOther,
			Query:          `[{"terms":{"period":${pe}}}]`,
			DataDimensions: models.DimensionSet{{ID: "visits"}},
		},
	}}

	got, err := e.Execute(context.Background(), ds, q, models.GlobalFilters{"pe": {"2024"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(s.requests) != 1 || s.requests[0].Index != "visits" {
		t.Fatalf("search requests = %+v", s.requests)
	}
	if got.Numerator == nil || got.Numerator.Kind != models.PayloadHits || len(got.Numerator.Hits) != 1 {
		t.Errorf("numerator = %+v", got.Numerator)
	}
}

func TestExecute_ElasticsearchCompilationError(t *testing.T) {
	t.Parallel()

	e := New(nil, &fakeSearcher{}, nil, cache.Noop{})
	ds := models.DataSource{ID: "es", Type: models.DataSourceElasticsearch}
	q := query.IndicatorQuery{Indicator: models.Indicator{
		ID: "ind1",
		Numerator: &models.IndicatorSide{
			DataDimensions: models.DimensionSet{{ID: "a"}, {ID: "b"}},
		},
	}}

	_, err := e.Execute(context.Background(), ds, q, nil)
	var ce *query.CompilationError
	if !errors.As(err, &ce) || ce.Side != query.SideNumerator {
		t.Errorf("err = %v, want numerator CompilationError", err)
	}
}

// blockingGetter holds every HTTPGet until release is closed, ignoring the
// caller's context the way an in-flight round trip does.
type blockingGetter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (g *blockingGetter) HTTPGet(_ context.Context, _ models.DataSource, _ string) ([]byte, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	return []byte(analyticsBody), nil
}

func TestExecute_SharedFetchSurvivesCallerCancel(t *testing.T) {
	t.Parallel()

	g := &blockingGetter{started: make(chan struct{}), release: make(chan struct{})}
	e := New(nil, nil, g, cache.Noop{})
	q := query.IndicatorQuery{Indicator: models.Indicator{ID: "ind1"}, Numerator: "analytics.json?dimension=dx:a"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := e.Execute(ctxA, external, q, nil)
		errA <- err
	}()
	<-g.started

	type result struct {
		got SidePayloads
		err error
	}
	resB := make(chan result, 1)
	go func() {
		got, err := e.Execute(context.Background(), external, q, nil)
		resB <- result{got, err}
	}()

	// Let B join the in-flight call before A gives up.
	time.Sleep(20 * time.Millisecond)
	cancelA()

	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return while the fetch was blocked")
	}

	close(g.release)

	select {
	case r := <-resB:
		if r.err != nil {
			t.Fatalf("live caller err = %v, want success", r.err)
		}
		if r.got.Numerator == nil {
			t.Errorf("live caller payloads = %+v", r.got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live caller never returned")
	}

	if n := g.calls.Load(); n != 1 {
		t.Errorf("HTTPGet calls = %d, want 1 shared fetch", n)
	}
}
