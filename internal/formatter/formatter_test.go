package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
	th "github.com/desertthunder/roster/internal/testing"
)

func sampleStudents() []models.Record {
	return []models.Record{
		{
			"id":        json.Number("1"),
			"name":      "Ada Obi",
			"class":     "JSS1",
			"gender":    "Female",
			"guardians": []any{map[string]any{"name": "Mrs Obi"}, map[string]any{"name": "Mr Obi"}},
			"picture":   "data:image/png;base64,AAAA",
		},
		{
			"uid":   "STU002",
			"name":  "Bayo, Jr",
			"class": "JSS2",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "TEXT", want: FormatText},
		{in: "csv", want: FormatCSV},
		{in: " json ", want: FormatJSON},
		{in: "md", want: FormatMarkdown},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	t.Run("known collection", func(t *testing.T) {
		cols := Columns("students", nil)
		if cols[0] != "id" || !contains(cols, "class") {
			t.Errorf("unexpected student columns %v", cols)
		}
	})

	t.Run("unknown collection uses scalar fields", func(t *testing.T) {
		records := []models.Record{
			{"title": "Term 1", "id": "s1", "nested": map[string]any{"a": 1}},
			{"code": "X", "name": "Scratch"},
		}
		got := Columns("scratch-cards", records)
		want := []string{"id", "name", "code", "title"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Columns() = %v, want %v", got, want)
		}
	})
}

func TestCell(t *testing.T) {
	r := sampleStudents()[0]

	tc := []struct {
		column string
		want   string
	}{
		{"id", "1"},
		{"name", "Ada Obi"},
		{"guardians", "Mrs Obi, Mr Obi"},
		{"picture", "[image]"},
		{"missing", ""},
	}
	for _, tt := range tc {
		if got := Cell(r, tt.column); got != tt.want {
			t.Errorf("Cell(%s) = %q, want %q", tt.column, got, tt.want)
		}
	}

	if got := Cell(models.Record{"active": true}, "active"); got != "yes" {
		t.Errorf("expected yes, got %q", got)
	}
	if got := Cell(models.Record{"guardians": []any{map[string]any{"name": ""}}}, "guardians"); got != "[1]" {
		t.Errorf("expected [1] for unnamed relation, got %q", got)
	}
}

func TestExporters(t *testing.T) {
	records := sampleStudents()
	columns := []string{"id", "uid", "name", "class"}

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(records, columns)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "id,uid,name,class\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"Bayo, Jr"`) {
			t.Errorf("CSV should quote commas, got: %s", output)
		}
		if lines := strings.Count(output, "\n"); lines != 3 {
			t.Errorf("expected 3 lines, got %d", lines)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("Students", records, columns)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Students (2)", "NAME", "Ada Obi", "STU002"} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText Empty", func(t *testing.T) {
		data, _ := ExportToText("Students", nil, columns)
		if !strings.Contains(string(data), "No records.") {
			t.Errorf("expected empty message, got %s", data)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("Students", []models.Record{{"id": "1", "name": "A|B"}}, []string{"id", "name"})
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# Students") {
			t.Error("missing heading")
		}
		if !strings.Contains(output, "| id | name |") {
			t.Errorf("missing header row:\n%s", output)
		}
		if !strings.Contains(output, `A\|B`) {
			t.Errorf("pipes should be escaped:\n%s", output)
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(nil, false)
		if err != nil || string(data) != "[]" {
			t.Errorf("ToJSON(nil) = %s, %v", data, err)
		}

		data, err = ToJSON(records, true)
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		var back []map[string]any
		if err := json.Unmarshal(data, &back); err != nil || len(back) != 2 {
			t.Errorf("invalid JSON output: %v", err)
		}
	})
}

func TestWrite(t *testing.T) {
	t.Run("Write Failure", func(t *testing.T) {
		err := Write(&th.FWriter{}, FormatCSV, "", sampleStudents(), []string{"id"})
		if err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected write error, got %v", err)
		}
	})

	t.Run("WriteExport Default Path", func(t *testing.T) {
		dir := t.TempDir()
		name := filepath.Join(dir, "students")

		path, err := WriteExport(FormatJSON, "", name, sampleStudents(), nil)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != name+".json" {
			t.Errorf("unexpected path %s", path)
		}
		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "Ada Obi") {
			t.Error("export file missing content")
		}
	})

	t.Run("WriteExport Bad Directory", func(t *testing.T) {
		_, err := WriteExport(FormatCSV, filepath.Join(t.TempDir(), "missing", "out.csv"), "x", nil, []string{"id"})
		if err == nil {
			t.Error("expected error for missing directory")
		}
	})

	t.Run("Extension", func(t *testing.T) {
		for f, ext := range map[Format]string{FormatText: ".txt", FormatCSV: ".csv", FormatJSON: ".json", FormatMarkdown: ".md"} {
			if f.Extension() != ext {
				t.Errorf("%s.Extension() = %s, want %s", f, f.Extension(), ext)
			}
		}
	})

}

func TestWithGrades(t *testing.T) {
	records := []models.Record{
		{"id": "r1", "score": json.Number("35"), "total": json.Number("50")},
		{"id": "r2", "comment": "absent"},
	}

	got := WithGrades(records)
	if got[0]["grade"] != "A" || got[0]["percentage"] != "70.00" {
		t.Errorf("unexpected graded record %v", got[0])
	}
	if _, ok := got[1]["grade"]; ok {
		t.Error("ungradable record should be unchanged")
	}
	if _, ok := records[0]["grade"]; ok {
		t.Error("WithGrades modified its input")
	}
}
