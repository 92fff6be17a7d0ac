// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package logging provides the zerolog-based structured logger shared by
// every Dashforge component.
//
// Call Init once from main, then log through the package-level helpers or
// through Ctx, which copies the request and visualization ids carried by a
// context onto every event:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//
//	ctx = logging.ContextWithVisualizationID(ctx, vizID)
//	logging.Ctx(ctx).Warn().Err(err).Msg("Denominator request failed")
//
// SlogHandler bridges slog-only libraries (sutureslog) onto the same output.
//
// Always terminate event chains with Msg or Send; an unterminated event is
// never written.
package logging
