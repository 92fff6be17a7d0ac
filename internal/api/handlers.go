// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package api

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dashforge/internal/cache"
	"github.com/tomtom215/dashforge/internal/datastore"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/scheduler"
	"github.com/tomtom215/dashforge/internal/store"
	ws "github.com/tomtom215/dashforge/internal/websocket"
)

// Resolver resolves and publishes one visualization.
type Resolver interface {
	Resolve(ctx context.Context, vizID string, req models.ResolveRequest) (*models.VisualizationDataset, error)
}

// Watcher is the refetch scheduler.
type Watcher interface {
	Watch(vizID string, req models.ResolveRequest) (scheduler.WatchInfo, error)
	Unwatch(vizID string) bool
	Focus(vizID string) error
	Watches() []scheduler.WatchInfo
}

// EntryReader reads published visualization state.
type EntryReader interface {
	Get(vizID string) (store.Entry, bool)
}

// DocumentIndexer proxies search document writes.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index string, doc json.RawMessage) ([]byte, error)
	DeleteDocument(ctx context.Context, index, id string) error
}

// PayloadCache is the executor's payload cache as seen by operators.
type PayloadCache interface {
	Stats() cache.Stats
	InvalidateDataSource(dataSourceID string) int
	Purge() int
}

// StateReporter reports a circuit breaker state.
type StateReporter interface {
	State() string
}

// Deps groups the handler dependencies. Nil optional services answer 503.
type Deps struct {
	Generator *query.Generator
	Resolver  Resolver
	Watcher   Watcher
	Store     EntryReader
	Hub       *ws.Hub
	Datastore datastore.Backend
	Search    DocumentIndexer
	Current   StateReporter
	Cache     PayloadCache
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_health.go: health
//   - handlers_visualizations.go: generate, resolve, watch, focus, state
//   - handlers_datastore.go: dataStore documents
//   - handlers_search.go: search document proxy
//   - handlers_cache.go: payload cache stats and invalidation
//   - handlers_websocket.go: update stream
type Handler struct {
	generator *query.Generator
	resolver  Resolver
	watcher   Watcher
	store     EntryReader
	hub       *ws.Hub
	datastore datastore.Backend
	search    DocumentIndexer
	current   StateReporter
	cache     PayloadCache
	mw        *ChiMiddleware
	startTime time.Time
}

// NewHandler creates a Handler. A nil Generator uses the default globals.
func NewHandler(deps Deps, mw *ChiMiddleware) *Handler {
	gen := deps.Generator
	if gen == nil {
		gen = query.NewGenerator(nil)
	}
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Handler{
		generator: gen,
		resolver:  deps.Resolver,
		watcher:   deps.Watcher,
		store:     deps.Store,
		hub:       deps.Hub,
		datastore: deps.Datastore,
		search:    deps.Search,
		current:   deps.Current,
		cache:     deps.Cache,
		mw:        mw,
		startTime: time.Now(),
	}
}
