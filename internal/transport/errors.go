// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCircuitOpen is wrapped by *Error when the breaker rejected the request.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Error is a failed backend round trip: a network failure, a timeout, a
// non-2xx response or a breaker rejection. Status is 0 when no response was
// received.
type Error struct {
	Method string
	Path   string
	Source string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s on %s: status %d: %s", e.Method, e.Path, e.Source, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s on %s: %v", e.Method, e.Path, e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Status == http.StatusNotFound
}

// IsCircuitOpen reports whether err was caused by an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// backendFault reports whether err should count against the breaker.
// 4xx responses are the caller's fault and leave the breaker alone.
func backendFault(err error) bool {
	if err == nil {
		return false
	}
	var te *Error
	if errors.As(err, &te) && te.Status >= 400 && te.Status < 500 {
		return false
	}
	return true
}
