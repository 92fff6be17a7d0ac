// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package query compiles indicator definitions into backend resource paths.

Nothing in this package performs I/O. Given the same indicators, global
filters and overrides, Generate always returns the same paths.

# Analytics sides

Each dimension binding compiles to a value. Bindings whose id is a key of the
global filters take the selected items, decorated with the binding prefix and
suffix and joined with ";". Other bindings compile to prefix + id + suffix.

Compiled dimensions are grouped by (axis, dimension) in first-seen order:

	dimension=dx:abc;def&filter=ou:USER_ORGUNIT&aggregationType=MAX

Bindings with an empty dimension emit one parameter per item instead.
The numerator side always carries aggregationType=MAX.

# SQL view sides

The view id is the single dataDimensions key. Variables are seeded from the
${name} tokens in the view text with the literal NULL, then bound from the
side expressions:

	sqlViews/AbCdEfGhIjK/data.json?var=period:2024Q1-2024Q2&var=level:NULL&paging=false

Expressions whose value mentions a global filter id have the id replaced by
the selected items joined with "-". A "calc" marker after substitution is
evaluated as arithmetic.

# Elasticsearch sides

BuildSearch turns a side into an index name and bool "must" clauses for the
search proxy.
*/
package query
