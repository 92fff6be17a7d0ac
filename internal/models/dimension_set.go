// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package models

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// DimensionSet is an ordered collection of dimension bindings.
//
// On the wire it is a JSON object keyed by item id. Go maps lose key order,
// and query parameter order depends on it, so the object keys are read in
// document order. A JSON array of bindings is accepted as well.
type DimensionSet []DimensionBinding

// Keys returns the binding ids in order.
func (s DimensionSet) Keys() []string {
	keys := make([]string, len(s))
	for i, b := range s {
		keys[i] = b.ID
	}
	return keys
}

// Get returns the binding with the given id.
func (s DimensionSet) Get(id string) (DimensionBinding, bool) {
	for _, b := range s {
		if b.ID == id {
			return b, true
		}
	}
	return DimensionBinding{}, false
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *DimensionSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if data[0] == '[' {
		var list []DimensionBinding
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode dimension list: %w", err)
		}
		*s = list
		return nil
	}

	var byID map[string]DimensionBinding
	if err := json.Unmarshal(data, &byID); err != nil {
		return fmt.Errorf("decode dimension map: %w", err)
	}

	order, err := objectKeyOrder(data)
	if err != nil {
		return err
	}

	out := make(DimensionSet, 0, len(order))
	for _, key := range order {
		b := byID[key]
		if b.ID == "" {
			b.ID = key
		}
		out = append(out, b)
	}
	*s = out
	return nil
}

// MarshalJSON writes the set back as an object, preserving order.
func (s DimensionSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// objectKeyOrder returns the top-level keys of a JSON object in document order.
// Duplicate keys keep their first position.
func objectKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read dimension object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("dimension set must be a JSON object or array")
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read dimension key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected dimension key token %v", tok)
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// skipValue consumes one complete JSON value from the token stream.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("skip dimension value: %w", err)
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}
