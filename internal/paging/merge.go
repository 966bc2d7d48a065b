package paging

import (
	"encoding/json"
	"slices"

	"github.com/desertthunder/roster/internal/models"
)

// Mode selects how a fetched page is combined with the current list.
type Mode int

const (
	// ModeReplace makes the page the whole list. Used for the first page when nothing was restored.
	ModeReplace Mode = iota
	// ModeAppend admits only records whose key is not already present.
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	default:
		return ""
	}
}

// Merge normalizes fresh and combines it with existing according to mode.
//
// The result never holds two records with the same key, keeps the order of existing, and appends
// admitted records in fetch order. Neither input slice is modified.
func Merge(existing, fresh []models.Record, mode Mode) []models.Record {
	var base []models.Record
	if mode == ModeAppend {
		base = existing
	}

	out := make([]models.Record, 0, len(base)+len(fresh))
	seen := make(map[string]struct{}, len(base)+len(fresh))

	for _, r := range base {
		seen[identityOf(r)] = struct{}{}
		out = append(out, r)
	}

	for _, r := range fresh {
		n := models.Normalize(r)
		k := identityOf(n)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}

	return out
}

// identityOf returns the record key, or the record's canonical JSON when it has neither id nor uid.
func identityOf(r models.Record) string {
	if k := r.Key(); k != "" {
		return "key:" + k
	}
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return "json:" + string(data)
}

// Upsert replaces the record sharing r's key in place, or appends r when none does.
//
// Used for local writes, which are newer than anything in the list. Records are matched on their
// effective key only, so a record whose uid happens to equal another's id is left alone.
func Upsert(list []models.Record, r models.Record) []models.Record {
	n := models.Normalize(r)
	k := n.Key()

	out := make([]models.Record, 0, len(list)+1)
	replaced := false
	for _, existing := range list {
		if k != "" && existing.Key() == k {
			if !replaced {
				out = append(out, n)
				replaced = true
			}
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, n)
	}
	return out
}

// Remove drops the records whose key equals key. When none does, it drops the first record whose
// uid equals key instead.
func Remove(list []models.Record, key string) []models.Record {
	if key == "" {
		return slices.Clone(list)
	}

	out := make([]models.Record, 0, len(list))
	for _, r := range list {
		if r.Key() == key {
			continue
		}
		out = append(out, r)
	}
	if len(out) < len(list) {
		return out
	}

	if i := indexOfUID(list, key); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return out
}

// Find returns the record whose key equals key, falling back to the first record whose uid does.
func Find(list []models.Record, key string) (models.Record, bool) {
	if key == "" {
		return nil, false
	}
	for _, r := range list {
		if r.Key() == key {
			return r, true
		}
	}
	if i := indexOfUID(list, key); i >= 0 {
		return list[i], true
	}
	return nil, false
}

func indexOfUID(list []models.Record, uid string) int {
	return slices.IndexFunc(list, func(r models.Record) bool {
		return r.String("uid") == uid
	})
}
