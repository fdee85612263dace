// ABOUTME: Response-unwrapping adapter for the backend's inconsistent list shapes
// ABOUTME: Normalizes bare arrays, {items,total} pages and {data:...} envelopes
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page is a normalized list response. Total falls back to len(Items).
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// DecodeList accepts a bare array, {"items": [...], "total": n} or a
// {"data": ...} envelope around either.
func DecodeList[T any](raw []byte) (Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Page[T]{Items: []T{}}, nil
	}

	switch raw[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return Page[T]{}, fmt.Errorf("decode list: %w", err)
		}
		return Page[T]{Items: nonNil(items), Total: len(items)}, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Page[T]{}, fmt.Errorf("decode list: %w", err)
		}
		if itemsRaw, ok := obj["items"]; ok {
			var items []T
			if err := json.Unmarshal(itemsRaw, &items); err != nil {
				return Page[T]{}, fmt.Errorf("decode list items: %w", err)
			}
			total := len(items)
			if totalRaw, ok := obj["total"]; ok {
				if err := json.Unmarshal(totalRaw, &total); err != nil {
					return Page[T]{}, fmt.Errorf("decode list total: %w", err)
				}
			}
			return Page[T]{Items: nonNil(items), Total: total}, nil
		}
		if data, ok := obj["data"]; ok {
			return DecodeList[T](data)
		}
		return Page[T]{}, fmt.Errorf("decode list: object has neither items nor data")
	}
	return Page[T]{}, fmt.Errorf("decode list: unexpected %q", string(raw[:1]))
}

// DecodeOne decodes a single record, unwrapping {"data": {...}} when the
// object is an envelope rather than a record with an id.
func DecodeOne(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || out == nil {
		return nil
	}
	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err == nil {
			_, hasID := obj["id"]
			if data, ok := obj["data"]; ok && !hasID {
				raw = data
			}
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
