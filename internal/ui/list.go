package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/models"
)

var _ list.Item = recordItem{}

// recordItem wraps [models.Record] to implement [list.Item].
type recordItem struct {
	record  models.Record
	columns []string
}

func newItems(records []models.Record, columns []string) []list.Item {
	items := make([]list.Item, len(records))
	for i, r := range records {
		items[i] = recordItem{record: r, columns: columns}
	}
	return items
}

func (i recordItem) FilterValue() string { return i.Title() + " " + i.Description() }

func (i recordItem) Title() string {
	if name := formatter.Cell(i.record, "name"); name != "" {
		return name
	}
	if key := i.record.Key(); key != "" {
		return "#" + key
	}
	return "(untitled)"
}

// Description joins the remaining display columns, skipping identity fields and blanks.
func (i recordItem) Description() string {
	parts := make([]string, 0, len(i.columns))
	for _, c := range i.columns {
		switch c {
		case "id", "uid", "name":
			continue
		}
		if v := formatter.Cell(i.record, c); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " • ")
}
