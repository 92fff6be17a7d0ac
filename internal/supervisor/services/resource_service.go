// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tomtom215/dashforge/internal/logging"
)

// NamedCloser is a resource released on shutdown.
type NamedCloser struct {
	Name   string
	Closer io.Closer
}

// CloserFunc adapts a close function with no result to io.Closer.
type CloserFunc func()

func (f CloserFunc) Close() error {
	f()
	return nil
}

// ResourceService holds long-lived handles (payload cache janitor, badger
// datastore) and closes them, in reverse order, when the tree stops. Closing
// happens once even if the service is restarted.
type ResourceService struct {
	resources []NamedCloser
	once      sync.Once
	closeErr  error
}

// NewResourceService creates a ResourceService.
func NewResourceService(resources ...NamedCloser) *ResourceService {
	return &ResourceService{resources: resources}
}

// Serve blocks until ctx is done, then closes every resource.
func (s *ResourceService) Serve(ctx context.Context) error {
	<-ctx.Done()
	if err := s.Close(); err != nil {
		return err
	}
	return ctx.Err()
}

// Close releases the resources. Later calls return the first result.
func (s *ResourceService) Close() error {
	s.once.Do(func() {
		var errs []error
		for i := len(s.resources) - 1; i >= 0; i-- {
			r := s.resources[i]
			if err := r.Closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", r.Name, err))
				continue
			}
			logging.Debug().Str("resource", r.Name).Msg("resource closed")
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *ResourceService) String() string {
	return "resources"
}
