// package formatter renders record lists as text tables, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/roster/internal/grading"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

// Format is an output format name.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format flag value. The empty string is [FormatText].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: format %q (want text, csv, json or markdown)", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

var collectionColumns = map[string][]string{
	"students": {"id", "uid", "name", "class", "gender", "email", "guardians"},
	"teachers": {"id", "name", "email", "phone", "subjects"},
	"admins":   {"id", "name", "email", "role"},
	"subjects": {"id", "name", "code", "teacher"},
	"results":  {"id", "student", "subject", "term", "score", "total", "percentage", "grade"},
}

// identityColumns always lead generic column sets.
var identityColumns = []string{"id", "uid", "name"}

// Columns returns the display columns for collection. Unknown collections use every scalar field
// present in records, identity fields first.
func Columns(collection string, records []models.Record) []string {
	if cols, ok := collectionColumns[collection]; ok {
		return cols
	}

	seen := make(map[string]bool)
	var rest []string
	for _, r := range records {
		for k, v := range r {
			if seen[k] || !isScalar(v) {
				continue
			}
			seen[k] = true
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	cols := make([]string, 0, len(rest))
	for _, c := range identityColumns {
		if seen[c] {
			cols = append(cols, c)
		}
	}
	for _, c := range rest {
		if !contains(identityColumns, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, int, int64, json.Number:
		return true
	default:
		return false
	}
}

// Cell renders one field for display.
//
// Relations show their names, data URIs collapse to a placeholder, other nested values are
// summarised by size.
func Cell(r models.Record, column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		if strings.HasPrefix(v, "data:") {
			return "[image]"
		}
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []any:
		return relationNames(v)
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
		return fmt.Sprintf("{%d fields}", len(v))
	default:
		return fmt.Sprint(v)
	}
}

func relationNames(items []any) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case map[string]any:
			if name, ok := it["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		case string:
			names = append(names, it)
		}
	}
	if len(names) == 0 {
		if len(items) == 0 {
			return ""
		}
		return fmt.Sprintf("[%d]", len(items))
	}
	return strings.Join(names, ", ")
}

func rows(records []models.Record, columns []string) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = Cell(r, c)
		}
		out[i] = row
	}
	return out
}

// ExportToCSV renders records as CSV with a header row of columns.
func ExportToCSV(records []models.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows(records, columns) {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText renders records as a bordered table under a title line.
func ExportToText(title string, records []models.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(fmt.Sprintf("%s (%d)\n", title, len(records)))
	}
	if len(records) == 0 {
		buf.WriteString("No records.\n")
		return buf.Bytes(), nil
	}

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = strings.ToUpper(c)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows(records, columns)...)

	buf.WriteString(t.Render())
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// ExportToMarkdown renders records as a Markdown table under a heading.
func ExportToMarkdown(title string, records []models.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	}
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", len(records)))

	if len(columns) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, row := range rows(records, columns) {
		for i, cell := range row {
			row[i] = strings.ReplaceAll(cell, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}

	return buf.Bytes(), nil
}

// ToJSON renders records as a JSON array. Columns are not applied.
func ToJSON(records []models.Record, pretty bool) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	return shared.MarshalJSON(records, pretty)
}

// Render produces records in format f.
func Render(f Format, title string, records []models.Record, columns []string) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(records, columns)
	case FormatJSON:
		data, err := ToJSON(records, true)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatMarkdown:
		return ExportToMarkdown(title, records, columns)
	default:
		return ExportToText(title, records, columns)
	}
}

// Write renders records to w.
func Write(w io.Writer, f Format, title string, records []models.Record, columns []string) error {
	data, err := Render(f, title, records, columns)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteExport renders records to a file, defaulting to {name}{ext} when path is empty.
func WriteExport(f Format, path, name string, records []models.Record, columns []string) (string, error) {
	if path == "" {
		path = name + f.Extension()
	}

	data, err := Render(f, name, records, columns)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// WithGrades returns copies of result records with percentage and grade fields filled in.
//
// Records that cannot be graded are returned unchanged.
func WithGrades(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	for i, r := range records {
		dup := r.Clone()
		if res, err := grading.FromRecord(r); err == nil {
			dup["percentage"] = fmt.Sprintf("%.2f", res.Percentage)
			dup["grade"] = res.Grade
		}
		out[i] = dup
	}
	return out
}
