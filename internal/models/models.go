package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Record is a single backend entity. Fields other than id and uid are opaque.
type Record map[string]any

// Page is the canonical shape of one fetched page, independent of the wire envelope.
//
// A nil NextCursor means the backend has no further pages.
type Page struct {
	Records    []Record
	NextCursor *string
}

// HasMore reports whether another page can be requested after this one.
func (p Page) HasMore() bool {
	return p.NextCursor != nil
}

// Key returns the effective identity key: id when present, else uid, else "".
//
// Numeric and string ids format identically so 1 and "1" are the same entity.
func (r Record) Key() string {
	if k := identity(r["id"]); k != "" {
		return k
	}
	return identity(r["uid"])
}

// String returns the string form of field, or "" when it is missing or null.
func (r Record) String(field string) string {
	return identity(r[field])
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	dup := make(Record, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}

// CloneRecords copies the slice header and every record map.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	dup := make([]Record, len(records))
	for i, r := range records {
		dup[i] = r.Clone()
	}
	return dup
}

func identity(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return canonicalNumber(id.String())
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return fmt.Sprint(id)
	}
}

// canonicalNumber rewrites a JSON number so 7, 7.0 and 7e0 compare equal without losing digits.
func canonicalNumber(s string) string {
	if strings.ContainsAny(s, "eE") {
		f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
		if err != nil {
			return s
		}
		if f.IsInt() && f.MantExp(nil) <= 256 {
			i, _ := f.Int(nil)
			return i.String()
		}
		return f.Text('g', -1)
	}

	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	whole = strings.TrimLeft(whole, "0")
	frac = strings.TrimRight(frac, "0")

	if whole == "" {
		whole = "0"
	}
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// DecodeRecords decodes a JSON array of objects, keeping numbers as [json.Number].
func DecodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}
