// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package normalize

import (
	"sort"

	"github.com/tomtom215/dashforge/internal/models"
)

// Bucket fields that are not sub-aggregations.
var bucketScalarFields = map[string]bool{
	"key":            true,
	"key_as_string":  true,
	"doc_count":      true,
	"from":           true,
	"to":             true,
	"from_as_string": true,
	"to_as_string":   true,
}

// normalizeBuckets flattens an aggregation tree into one row per leaf bucket
// path. Each bucket aggregation contributes a column named after it holding
// the bucket key. Leaf rows carry metric aggregations as columns; the value
// column is the single metric when there is exactly one, else doc_count.
func normalizeBuckets(aggs map[string]interface{}) Result {
	rows := flattenAggs(aggs, models.NormalizedRow{}, nil)
	if len(rows) == 0 {
		return zeroResult(nil, nil)
	}
	return Result{Rows: unifyColumns(rows), Metadata: map[string]models.MetadataItem{}}
}

func flattenAggs(aggs map[string]interface{}, base models.NormalizedRow, docCount interface{}) []models.NormalizedRow {
	names := sortedKeys(aggs)

	var bucketAggs []string
	metrics := make(map[string]interface{})
	var metricNames []string
	for _, name := range names {
		node, ok := aggs[name].(map[string]interface{})
		if !ok {
			continue
		}
		if _, ok := node["buckets"]; ok {
			bucketAggs = append(bucketAggs, name)
			continue
		}
		if v, ok := node["value"]; ok {
			metrics[name] = v
			metricNames = append(metricNames, name)
		}
	}

	if len(bucketAggs) == 0 {
		if len(metricNames) == 0 && docCount == nil {
			return nil
		}
		row := base.Clone()
		for _, name := range metricNames {
			row[name] = metrics[name]
		}
		switch {
		case len(metricNames) == 1:
			row[models.ColumnValue] = metrics[metricNames[0]]
		case docCount != nil:
			row[models.ColumnValue] = docCount
		default:
			row[models.ColumnValue] = 0
		}
		return []models.NormalizedRow{row}
	}

	var out []models.NormalizedRow
	for _, name := range bucketAggs {
		node := aggs[name].(map[string]interface{})
		for _, bucket := range bucketList(node["buckets"]) {
			row := base.Clone()
			row[name] = bucketKey(bucket)
			out = append(out, flattenAggs(subAggs(bucket), row, bucket["doc_count"])...)
		}
	}
	return out
}

// bucketList accepts both the array form and the keyed object form.
func bucketList(raw interface{}) []map[string]interface{} {
	switch b := raw.(type) {
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(b))
		for _, item := range b {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]interface{}:
		out := make([]map[string]interface{}, 0, len(b))
		for _, key := range sortedKeys(b) {
			m, ok := b[key].(map[string]interface{})
			if !ok {
				continue
			}
			if _, has := m["key"]; !has {
				m["key"] = key
			}
			out = append(out, m)
		}
		return out
	default:
		return nil
	}
}

func bucketKey(bucket map[string]interface{}) interface{} {
	if s, ok := bucket["key_as_string"]; ok {
		return s
	}
	return bucket["key"]
}

func subAggs(bucket map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range bucket {
		if bucketScalarFields[k] {
			continue
		}
		if _, ok := v.(map[string]interface{}); ok {
			out[k] = v
		}
	}
	return out
}

// normalizeHits turns each hit source into a row.
func normalizeHits(hits []map[string]interface{}) Result {
	if len(hits) == 0 {
		return zeroResult(nil, nil)
	}
	rows := make([]models.NormalizedRow, len(hits))
	for i, h := range hits {
		rows[i] = models.NormalizedRow(h).Clone()
	}
	return Result{Rows: unifyColumns(rows), Metadata: map[string]models.MetadataItem{}}
}

// unifyColumns gives every row the union key set, filling gaps with 0.
func unifyColumns(rows []models.NormalizedRow) []models.NormalizedRow {
	columns := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			columns[k] = true
		}
	}
	for _, r := range rows {
		for c := range columns {
			if _, ok := r[c]; !ok {
				r[c] = 0
			}
		}
	}
	return rows
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
