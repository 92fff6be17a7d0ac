// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package scheduler re-resolves watched visualizations.
//
// A visualization is resolved again when its query key changes, when its
// refresh interval elapses, or when its view regains focus. Each watched
// visualization owns one timer, stopped on Unwatch. At most one run per
// visualization key is in flight; a run for a superseded key is left to
// finish and the store discards its result.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/dashforge/internal/cache"
	"github.com/tomtom215/dashforge/internal/config"
	"github.com/tomtom215/dashforge/internal/logging"
	"github.com/tomtom215/dashforge/internal/metrics"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/pipeline"
	"github.com/tomtom215/dashforge/internal/validation"
)

// ErrNotWatched is returned by Focus for unknown visualizations.
var ErrNotWatched = errors.New("visualization is not watched")

// Resolver resolves and publishes one visualization.
type Resolver interface {
	Resolve(ctx context.Context, vizID string, req models.ResolveRequest) (*models.VisualizationDataset, error)
}

// WatchInfo describes a watched visualization.
type WatchInfo struct {
	VisualizationID string        `json:"visualizationId"`
	Key             string        `json:"key"`
	Interval        time.Duration `json:"interval"`
	InFlight        bool          `json:"inFlight"`
}

type watch struct {
	req      models.ResolveRequest
	key      string
	interval time.Duration
	timer    *time.Timer

	inFlightKey string
	runID       string
	cancel      context.CancelFunc
	lastFocus   time.Time

	// pending is set when a run was requested before Serve started.
	pending bool
}

// Scheduler is a suture service. Watch, Unwatch and Focus may be called
// before Serve; runs requested earlier start when Serve begins.
type Scheduler struct {
	resolver Resolver
	cfg      config.SchedulerConfig
	now      func() time.Time

	mu      sync.Mutex
	base    context.Context
	watches map[string]*watch
	wg      sync.WaitGroup
}

// New creates a Scheduler.
func New(resolver Resolver, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
		watches:  make(map[string]*watch),
	}
}

// String implements fmt.Stringer for suture logs.
func (s *Scheduler) String() string {
	return "refetch-scheduler"
}

// Interval parses a refresh interval and applies the configured default
// and minimum. Zero disables interval refetching.
func (s *Scheduler) Interval(raw string) (time.Duration, error) {
	if raw == "" {
		return s.cfg.DefaultInterval, nil
	}
	d, err := validation.ParseRefreshInterval(raw)
	if err != nil {
		return 0, err
	}
	if d > 0 && d < s.cfg.MinInterval {
		d = s.cfg.MinInterval
	}
	return d, nil
}

// Watch registers or updates vizID. A new or changed key triggers a run;
// an unchanged key only refreshes the request snapshot and interval.
func (s *Scheduler) Watch(vizID string, req models.ResolveRequest) (WatchInfo, error) {
	interval, err := s.Interval(req.RefreshInterval)
	if err != nil {
		return WatchInfo{}, fmt.Errorf("refresh interval: %w", err)
	}
	key := cache.Fingerprint(cache.Keys(req.Indicators, req.GlobalFilters, req.Overrides))

	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.watches[vizID]
	if !exists {
		w = &watch{}
		s.watches[vizID] = w
		metrics.WatchedVisualizations.Set(float64(len(s.watches)))
	}
	keyChanged := !exists || w.key != key
	intervalChanged := w.interval != interval

	w.req = req
	w.key = key
	w.interval = interval

	if keyChanged {
		s.startRunLocked(vizID, w, pipeline.TriggerKeyChange)
	}
	if keyChanged || intervalChanged {
		s.armLocked(vizID, w)
	}
	return s.infoLocked(vizID, w), nil
}

// Unwatch stops the timer of vizID and cancels its in-flight run.
func (s *Scheduler) Unwatch(vizID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[vizID]
	if !ok {
		return false
	}
	stopLocked(w)
	delete(s.watches, vizID)
	metrics.WatchedVisualizations.Set(float64(len(s.watches)))
	return true
}

// Focus re-resolves vizID unless it regained focus within the debounce
// window.
func (s *Scheduler) Focus(vizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[vizID]
	if !ok {
		return ErrNotWatched
	}
	now := s.now()
	if !w.lastFocus.IsZero() && now.Sub(w.lastFocus) < s.cfg.FocusDebounce {
		metrics.SchedulerSkips.WithLabelValues("debounced").Inc()
		return nil
	}
	w.lastFocus = now
	s.startRunLocked(vizID, w, pipeline.TriggerFocus)
	return nil
}

// Watches lists the watched visualizations.
func (s *Scheduler) Watches() []WatchInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WatchInfo, 0, len(s.watches))
	for id, w := range s.watches {
		out = append(out, s.infoLocked(id, w))
	}
	return out
}

// Serve runs until ctx is canceled. Timers only fire while serving.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	watched := len(s.watches)
	for id, w := range s.watches {
		s.armLocked(id, w)
		if w.pending {
			w.pending = false
			s.startRunLocked(id, w, pipeline.TriggerKeyChange)
		}
	}
	s.mu.Unlock()

	logging.Info().Int("watched", watched).Msg("Refetch scheduler started")
	<-ctx.Done()

	s.mu.Lock()
	s.base = nil
	for _, w := range s.watches {
		stopLocked(w)
	}
	s.mu.Unlock()
	s.wg.Wait()

	logging.Info().Msg("Refetch scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) infoLocked(vizID string, w *watch) WatchInfo {
	return WatchInfo{
		VisualizationID: vizID,
		Key:             w.key,
		Interval:        w.interval,
		InFlight:        w.inFlightKey != "",
	}
}

// armLocked (re)starts the interval timer of w.
func (s *Scheduler) armLocked(vizID string, w *watch) {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if s.base == nil || w.interval <= 0 {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.interval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.watches[vizID] != w || w.timer != timer {
			return
		}
		s.startRunLocked(vizID, w, pipeline.TriggerInterval)
		timer.Reset(w.interval)
	})
	w.timer = timer
}

func stopLocked(w *watch) {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// startRunLocked launches a resolution for the current snapshot of w.
func (s *Scheduler) startRunLocked(vizID string, w *watch, trigger pipeline.Trigger) {
	if s.base == nil {
		w.pending = true
		return
	}
	if w.inFlightKey == w.key {
		metrics.SchedulerSkips.WithLabelValues("in_flight").Inc()
		return
	}

	ctx := s.base
	var cancel context.CancelFunc
	if s.cfg.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	ctx = pipeline.WithTrigger(ctx, trigger)

	runID := uuid.New().String()
	ctx = logging.ContextWithRequestID(ctx, runID)

	w.inFlightKey = w.key
	w.runID = runID
	w.cancel = cancel
	req := w.req

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		_, err := s.resolver.Resolve(ctx, vizID, req)
		if err != nil && !errors.Is(err, pipeline.ErrSuperseded) {
			logging.Ctx(ctx).Warn().Err(err).Str("trigger", string(trigger)).Msg("Scheduled resolution failed")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if w.runID == runID {
			w.inFlightKey = ""
			w.runID = ""
			w.cancel = nil
		}
	}()
}

func (s *Scheduler) serving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base != nil
}

func (s *Scheduler) inFlight(vizID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watches[vizID]
	return ok && w.inFlightKey != ""
}
