// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/tomtom215/dashforge/internal/models"
)

func dataset(v float64) *models.VisualizationDataset {
	return &models.VisualizationDataset{Data: []models.NormalizedRow{{"value": v}}}
}

func TestStore_PublishAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	tk := s.Begin("viz1", "k1")

	if e, ok := s.Get("viz1"); !ok || e.Status != StatusLoading {
		t.Fatalf("after Begin = %+v, %v", e, ok)
	}
	if !s.Publish(tk, dataset(1)) {
		t.Fatal("Publish rejected latest ticket")
	}

	e, ok := s.Get("viz1")
	if !ok || e.Status != StatusReady || e.Dataset == nil {
		t.Fatalf("after Publish = %+v", e)
	}
	if e.Dataset.VisualizationID != "viz1" || e.Dataset.Generation != tk.Generation {
		t.Errorf("dataset identity = %s/%d", e.Dataset.VisualizationID, e.Dataset.Generation)
	}
}

func TestStore_StaleResultSuppressed(t *testing.T) {
	t.Parallel()

	s := New()
	k1 := s.Begin("viz1", "K1")
	k2 := s.Begin("viz1", "K2")

	if !s.Publish(k2, dataset(2)) {
		t.Fatal("K2 publish rejected")
	}
	if s.Publish(k1, dataset(1)) {
		t.Error("K1 publish accepted after K2")
	}
	if s.Fail(k1, errors.New("late")) {
		t.Error("K1 failure accepted after K2")
	}

	e, _ := s.Get("viz1")
	if e.Key != "K2" || e.Dataset.Data[0]["value"] != 2.0 || e.Status != StatusReady {
		t.Errorf("store = %+v", e)
	}
}

func TestStore_StaleEvenBeforeNewerCompletes(t *testing.T) {
	t.Parallel()

	s := New()
	k1 := s.Begin("viz1", "K1")
	_ = s.Begin("viz1", "K2")

	if s.Publish(k1, dataset(1)) {
		t.Error("older ticket accepted while newer run is in flight")
	}
}

func TestStore_FailKeepsDataset(t *testing.T) {
	t.Parallel()

	s := New()
	s.Publish(s.Begin("viz1", "k"), dataset(1))
	s.Fail(s.Begin("viz1", "k"), errors.New("backend down"))

	e, _ := s.Get("viz1")
	if e.Status != StatusError || e.Error != "backend down" {
		t.Errorf("entry = %+v", e)
	}
	if e.Dataset == nil {
		t.Error("previous dataset dropped on failure")
	}
}

func TestStore_Isolation(t *testing.T) {
	t.Parallel()

	s := New()
	ok := s.Begin("ok", "k")
	bad := s.Begin("bad", "k")
	s.Fail(bad, errors.New("boom"))
	s.Publish(ok, dataset(5))

	if e, _ := s.Get("ok"); e.Status != StatusReady {
		t.Errorf("ok = %+v", e)
	}
	if e, _ := s.Get("bad"); e.Status != StatusError {
		t.Errorf("bad = %+v", e)
	}
}

func TestStore_RemoveMakesTicketsStale(t *testing.T) {
	t.Parallel()

	s := New()
	tk := s.Begin("viz1", "k")
	s.Remove("viz1")
	if s.Publish(tk, dataset(1)) {
		t.Error("publish accepted after Remove")
	}
	if _, ok := s.Get("viz1"); ok {
		t.Error("entry still present")
	}
}

func TestStore_Subscribe(t *testing.T) {
	t.Parallel()

	s := New()
	ch, cancel := s.Subscribe(4)

	s.Publish(s.Begin("viz1", "k"), dataset(1))
	s.Fail(s.Begin("viz2", "k"), errors.New("x"))

	ev := <-ch
	if ev.Type != EventData || ev.Entry.VisualizationID != "viz1" {
		t.Errorf("first event = %+v", ev)
	}
	ev = <-ch
	if ev.Type != EventError || ev.Entry.VisualizationID != "viz2" {
		t.Errorf("second event = %+v", ev)
	}

	cancel()
	cancel()
	if _, open := <-ch; open {
		t.Error("channel open after cancel")
	}
}

func TestStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	s := New()
	_, cancel := s.Subscribe(1)
	defer cancel()

	for i := 0; i < 10; i++ {
		s.Publish(s.Begin("viz1", "k"), dataset(float64(i)))
	}
	e, _ := s.Get("viz1")
	if e.Dataset.Data[0]["value"] != 9.0 {
		t.Errorf("last value = %v", e.Dataset.Data[0]["value"])
	}
}

func TestStore_Concurrent(t *testing.T) {
	t.Parallel()

	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk := s.Begin("viz", "k")
			s.Publish(tk, dataset(float64(i)))
			s.Get("viz")
		}(i)
	}
	wg.Wait()

	if ids := s.IDs(); len(ids) != 1 || ids[0] != "viz" {
		t.Errorf("IDs() = %v", ids)
	}
}
