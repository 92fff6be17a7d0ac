// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

/*
Package pipeline resolves one visualization end to end:

	generate -> execute -> normalize -> combine -> special cases -> publish

Indicators are resolved one after another in request order; the rows of each
indicator are appended to the dataset in that order. Generation errors abort
before any network call. A transport error on a numerator fails the whole
visualization and is recorded in the store for that visualization only. A
failed denominator is logged and the indicator falls back to its numerator.

Every resolution takes a store ticket before it starts, so a run for an
outdated key can finish but never overwrite a newer result.
*/
package pipeline
