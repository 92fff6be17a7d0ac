// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package cache

import (
	"time"

	"github.com/tomtom215/dashforge/internal/models"
)

// Cacher is the payload cache the executor reads through.
type Cacher interface {
	Get(key string) (models.RawPayload, bool)
	Put(key, dataSourceID string, p models.RawPayload)
	InvalidateDataSource(dataSourceID string) int
	Purge() int
	Stats() Stats
}

// Noop never stores anything. It is used when caching is disabled.
type Noop struct{}

func (Noop) Get(string) (models.RawPayload, bool)  { return models.RawPayload{}, false }
func (Noop) Put(string, string, models.RawPayload) {}
func (Noop) InvalidateDataSource(string) int       { return 0 }
func (Noop) Purge() int                            { return 0 }
func (Noop) Stats() Stats                          { return Stats{} }

// NewCacher returns a Cache, or Noop when enabled is false.
func NewCacher(enabled bool, ttl time.Duration, maxEntries int) Cacher {
	if !enabled {
		return Noop{}
	}
	return New(ttl, maxEntries)
}

var (
	_ Cacher = (*Cache)(nil)
	_ Cacher = Noop{}
)
