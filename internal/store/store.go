// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package store keeps the latest dataset of every visualization.
//
// Resolutions call Begin before fetching and Publish or Fail when done.
// Begin hands out a Ticket with a fresh generation; only the ticket of the
// most recently started resolution may write, so a slow run for an old key
// never overwrites a newer result.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/dashforge/internal/logging"
	"github.com/tomtom215/dashforge/internal/metrics"
	"github.com/tomtom215/dashforge/internal/models"
)

// Status of a visualization entry.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Event types delivered to subscribers.
const (
	EventData  = "visualization_data"
	EventError = "visualization_error"
)

// Ticket identifies one started resolution.
type Ticket struct {
	VisualizationID string
	Key             string
	Generation      uint64
}

// Entry is the state of one visualization.
type Entry struct {
	VisualizationID string                       `json:"visualizationId"`
	Key             string                       `json:"key,omitempty"`
	Status          Status                       `json:"status"`
	Generation      uint64                       `json:"generation"`
	Dataset         *models.VisualizationDataset `json:"dataset,omitempty"`
	Error           string                       `json:"error,omitempty"`
	UpdatedAt       time.Time                    `json:"updatedAt"`
}

// Event is sent to subscribers after every accepted Publish or Fail.
type Event struct {
	Type  string `json:"type"`
	Entry Entry  `json:"entry"`
}

type slot struct {
	latest uint64
	entry  Entry
}

// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	generation uint64
	slots      map[string]*slot

	subMu   sync.RWMutex
	nextSub uint64
	subs    map[uint64]chan Event
}

// New creates an empty store.
func New() *Store {
	return &Store{
		slots: make(map[string]*slot),
		subs:  make(map[uint64]chan Event),
	}
}

// Begin registers a new resolution for vizID. Earlier tickets for the same
// visualization become stale. The last published dataset stays readable
// while the entry is loading.
func (s *Store) Begin(vizID, key string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	sl, ok := s.slots[vizID]
	if !ok {
		sl = &slot{entry: Entry{VisualizationID: vizID}}
		s.slots[vizID] = sl
	}
	sl.latest = s.generation
	sl.entry.Key = key
	sl.entry.Status = StatusLoading
	sl.entry.Error = ""

	return Ticket{VisualizationID: vizID, Key: key, Generation: s.generation}
}

// Publish stores ds if t is still the latest ticket for its visualization.
// It reports whether the dataset was accepted.
func (s *Store) Publish(t Ticket, ds *models.VisualizationDataset) bool {
	return s.settle(t, EventData, func(e *Entry) {
		ds.VisualizationID = t.VisualizationID
		ds.Generation = t.Generation
		if ds.UpdatedAt.IsZero() {
			ds.UpdatedAt = time.Now().UTC()
		}
		e.Status = StatusReady
		e.Dataset = ds
		e.Error = ""
		e.UpdatedAt = ds.UpdatedAt
	})
}

// Fail records err for t's visualization if t is still the latest ticket.
// The previous dataset is kept so clients can keep rendering it.
func (s *Store) Fail(t Ticket, err error) bool {
	return s.settle(t, EventError, func(e *Entry) {
		e.Status = StatusError
		e.Error = err.Error()
		e.UpdatedAt = time.Now().UTC()
	})
}

func (s *Store) settle(t Ticket, eventType string, apply func(*Entry)) bool {
	s.mu.Lock()
	sl, ok := s.slots[t.VisualizationID]
	if !ok || sl.latest != t.Generation {
		s.mu.Unlock()
		logging.Debug().
			Str("visualization_id", t.VisualizationID).
			Uint64("generation", t.Generation).
			Msg("Dropping stale result")
		return false
	}
	apply(&sl.entry)
	sl.entry.Generation = t.Generation
	entry := sl.entry
	s.mu.Unlock()

	s.notify(Event{Type: eventType, Entry: entry})
	return true
}

// Get returns the entry for vizID.
func (s *Store) Get(vizID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[vizID]
	if !ok {
		return Entry{}, false
	}
	return sl.entry, true
}

// IDs returns the known visualization ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove forgets vizID. In-flight tickets for it become stale.
func (s *Store) Remove(vizID string) {
	s.mu.Lock()
	delete(s.slots, vizID)
	s.mu.Unlock()
}

// Subscribe returns a channel of accepted updates and a cancel function.
// Slow subscribers miss events rather than block publishers.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			metrics.StoreEventsDropped.Inc()
			logging.Warn().Str("visualization_id", ev.Entry.VisualizationID).Msg("Subscriber channel full, dropping update")
		}
	}
}
