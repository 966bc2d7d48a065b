package models

import (
	"fmt"
	"strings"
)

var (
	// relationFields hold nested sub-objects the backend sometimes returns as a single object.
	relationFields = []string{"guardians", "parents", "profile"}

	// defaultedFields carry at least one element after normalization when present.
	defaultedFields = []string{"guardians", "parents"}
)

func defaultRelation() map[string]any {
	return map[string]any{"name": "", "phone": "", "relationship": ""}
}

// Normalize returns a copy of r in canonical shape. The input is not modified.
//
//   - single relation objects become arrays of one
//   - guardian-like relations that are present but empty fall back to one default element
//   - a boolean gender becomes "Male" or "Female"
//   - {mime, data} objects become data URIs
func Normalize(r Record) Record {
	out := r.Clone()

	for _, field := range relationFields {
		switch v := out[field].(type) {
		case map[string]any:
			out[field] = []any{v}
		case Record:
			out[field] = []any{map[string]any(v)}
		}
	}

	for _, field := range defaultedFields {
		if v, ok := out[field]; ok && isEmptyRelation(v) {
			out[field] = []any{defaultRelation()}
		}
	}

	if g, ok := out["gender"].(bool); ok {
		if g {
			out["gender"] = "Male"
		} else {
			out["gender"] = "Female"
		}
	}

	for field, v := range out {
		if uri, ok := dataURI(v); ok {
			out[field] = uri
		}
	}

	return out
}

func isEmptyRelation(v any) bool {
	switch rel := v.(type) {
	case nil:
		return true
	case []any:
		return len(rel) == 0
	case []map[string]any:
		return len(rel) == 0
	case string:
		return strings.TrimSpace(rel) == ""
	default:
		return false
	}
}

// dataURI converts {mime, data} image objects into data:<mime>;base64,<data>.
func dataURI(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) != 2 {
		return "", false
	}
	mime, ok := obj["mime"].(string)
	if !ok || mime == "" {
		return "", false
	}
	data, ok := obj["data"].(string)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, data), true
}
