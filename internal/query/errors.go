// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package query

import (
	"errors"
	"fmt"
)

// ErrSQLViewDimensions is wrapped when a SQL view side does not have exactly
// one dataDimensions key.
var ErrSQLViewDimensions = errors.New("sql view side requires exactly one data dimension")

// ErrInvalidFactor is wrapped when a custom indicator formula does not parse.
var ErrInvalidFactor = errors.New("invalid custom factor")

// ErrSearchIndex is wrapped when a search side does not name exactly one index.
var ErrSearchIndex = errors.New("search side requires exactly one index")

// ErrSearchQuery is wrapped when a search side's query text is not valid JSON.
var ErrSearchQuery = errors.New("invalid search query")

// CompilationError reports malformed indicator data. It is raised before any
// network call and aborts the whole generation.
type CompilationError struct {
	IndicatorID string
	Side        string
	Err         error
}

func (e *CompilationError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("compile indicator %s: %v", e.IndicatorID, e.Err)
	}
	return fmt.Sprintf("compile indicator %s %s: %v", e.IndicatorID, e.Side, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}
