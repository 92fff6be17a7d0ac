// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package query

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dashforge/internal/models"
)

// Default result sizes for search requests.
const (
	DefaultSearchSize   = 1000
	aggregationOnlySize = 0
)

type searchTemplate struct {
	Must []interface{}          `json:"must"`
	Aggs map[string]interface{} `json:"aggs"`
	Size *int                   `json:"size"`
}

// BuildSearch compiles a side bound to an Elasticsearch data source. The
// single dataDimensions key names the index. The side query is either a JSON
// array of must clauses or an object with must, aggs and size. ${name} tokens
// are replaced by the global filter items as a JSON array, or by the side
// expression value as a JSON string, or by null.
func BuildSearch(side *models.IndicatorSide, filters models.GlobalFilters) (models.SearchRequest, error) {
	req := models.SearchRequest{Size: DefaultSearchSize}
	if side == nil {
		return req, fmt.Errorf("%w: no side", ErrSearchIndex)
	}
	if len(side.DataDimensions) != 1 {
		return req, fmt.Errorf("%w: got %d", ErrSearchIndex, len(side.DataDimensions))
	}
	req.Index = side.DataDimensions[0].ID
	req.Query.Bool.Must = []interface{}{}

	text := strings.TrimSpace(side.Query)
	if text == "" {
		return req, nil
	}
	text = substituteSearchTokens(text, side.Expressions, filters)

	if strings.HasPrefix(text, "[") {
		var must []interface{}
		if err := json.Unmarshal([]byte(text), &must); err != nil {
			return req, fmt.Errorf("%w: %v", ErrSearchQuery, err)
		}
		req.Query.Bool.Must = must
		return req, nil
	}

	var tmpl searchTemplate
	if err := json.Unmarshal([]byte(text), &tmpl); err != nil {
		return req, fmt.Errorf("%w: %v", ErrSearchQuery, err)
	}
	if tmpl.Must != nil {
		req.Query.Bool.Must = tmpl.Must
	}
	req.Aggs = tmpl.Aggs
	switch {
	case tmpl.Size != nil:
		req.Size = *tmpl.Size
	case len(tmpl.Aggs) > 0:
		req.Size = aggregationOnlySize
	}
	return req, nil
}

func substituteSearchTokens(text string, expressions map[string]models.Expression, filters models.GlobalFilters) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-1])
		if items, ok := filters[name]; ok {
			b, err := json.Marshal(items)
			if err == nil {
				return string(b)
			}
		}
		if e, ok := expressions[name]; ok {
			b, err := json.Marshal(e.Value)
			if err == nil {
				return string(b)
			}
		}
		return "null"
	})
}
