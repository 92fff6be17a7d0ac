// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

// Package expr evaluates the small arithmetic expressions found in indicator
// definitions: custom factor formulas, multiplier suffixes and SQL-view
// "calc" markers.
//
// Evaluation is delegated to govaluate. Every failure, including results
// that are not finite numbers, is returned as *EvaluationError so callers can
// recover locally with a sentinel value.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/casbin/govaluate"
)

var (
	// ErrEmpty is returned for blank expressions.
	ErrEmpty = errors.New("empty expression")

	// ErrNonNumeric is returned when an expression evaluates to a non-number.
	ErrNonNumeric = errors.New("expression result is not numeric")

	// ErrNonFinite is returned for Inf and NaN results, such as division by zero.
	ErrNonFinite = errors.New("expression result is not finite")
)

// EvaluationError wraps any failure to evaluate an expression.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Evaluate parses and evaluates expression with the given named parameters.
// Numeric parameters of any Go numeric type are accepted.
func Evaluate(expression string, params map[string]interface{}) (float64, error) {
	if strings.TrimSpace(expression) == "" {
		return 0, &EvaluationError{Expression: expression, Err: ErrEmpty}
	}

	parsed, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return 0, &EvaluationError{Expression: expression, Err: err}
	}

	result, err := parsed.Evaluate(params)
	if err != nil {
		return 0, &EvaluationError{Expression: expression, Err: err}
	}

	value, ok := result.(float64)
	if !ok {
		return 0, &EvaluationError{Expression: expression, Err: ErrNonNumeric}
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, &EvaluationError{Expression: expression, Err: ErrNonFinite}
	}
	return value, nil
}

// Validate reports whether expression parses. Parameters are not checked.
func Validate(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return &EvaluationError{Expression: expression, Err: ErrEmpty}
	}
	if _, err := govaluate.NewEvaluableExpression(expression); err != nil {
		return &EvaluationError{Expression: expression, Err: err}
	}
	return nil
}

// Scale applies a multiplier suffix to base. The suffix is appended to the
// formatted base and the result evaluated, so "*100" multiplies and "/7"
// divides. A leading "x" or "X" is read as multiplication, and a bare number
// is treated as a multiplier.
func Scale(base float64, suffix string) (float64, error) {
	return Evaluate(FormatNumber(base)+normalizeSuffix(suffix), nil)
}

func normalizeSuffix(suffix string) string {
	s := strings.TrimSpace(suffix)
	if s == "" {
		return s
	}
	switch s[0] {
	case '*', '/', '+', '-', '%':
		return s
	case 'x', 'X':
		return "*" + s[1:]
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return "*" + s
	}
	return s
}

// FormatNumber renders v without exponent or trailing zeros.
// Negative values are parenthesized so they compose with suffixes.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}

// ToFloat coerces a row cell to float64. Backend grids deliver numbers as
// strings; empty or non-numeric cells report ok=false.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
