package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRecordKey(t *testing.T) {
	tc := []struct {
		name   string
		record Record
		want   string
	}{
		{name: "string id", record: Record{"id": "abc"}, want: "abc"},
		{name: "json number id", record: Record{"id": json.Number("1")}, want: "1"},
		{name: "float id", record: Record{"id": float64(1)}, want: "1"},
		{name: "int id", record: Record{"id": 42}, want: "42"},
		{name: "uid fallback", record: Record{"uid": "STU-001"}, want: "STU-001"},
		{name: "empty id falls back to uid", record: Record{"id": "", "uid": "STU-002"}, want: "STU-002"},
		{name: "null id falls back to uid", record: Record{"id": nil, "uid": "STU-003"}, want: "STU-003"},
		{name: "id wins over uid", record: Record{"id": "7", "uid": "STU-004"}, want: "7"},
		{name: "no identity", record: Record{"name": "A"}, want: ""},
		{name: "fractionless number", record: Record{"id": json.Number("7.0")}, want: "7"},
		{name: "exponent number", record: Record{"id": json.Number("7e2")}, want: "700"},
		{name: "leading zeros", record: Record{"id": json.Number("0.50")}, want: "0.5"},
		{name: "beyond float precision", record: Record{"id": json.Number("9007199254740993")}, want: "9007199254740993"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("number and string ids collide", func(t *testing.T) {
		if (Record{"id": json.Number("1")}).Key() != (Record{"id": "1"}).Key() {
			t.Error("expected 1 and \"1\" to share a key")
		}
	})
}

func TestDecodeRecords(t *testing.T) {
	records, err := DecodeRecords([]byte(`[{"id": 12345678901234567890, "name": "A"}]`))
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if _, ok := records[0]["id"].(json.Number); !ok {
		t.Errorf("expected id to decode as json.Number, got %T", records[0]["id"])
	}
	if records[0].Key() == "" {
		t.Error("expected a non-empty key")
	}

	if _, err := DecodeRecords([]byte(`{"id": 1}`)); err == nil {
		t.Error("expected error decoding an object as records")
	}
}

func TestRecordClone(t *testing.T) {
	orig := Record{"id": "1", "name": "A"}
	dup := orig.Clone()
	dup["name"] = "B"

	if orig["name"] != "A" {
		t.Error("mutating the clone changed the original")
	}
	if CloneRecords(nil) != nil {
		t.Error("expected nil clone of nil slice")
	}
}

func TestNormalize(t *testing.T) {
	t.Run("single guardian object becomes array of one", func(t *testing.T) {
		got := Normalize(Record{"id": "1", "guardians": map[string]any{"name": "Mum"}})
		want := []any{map[string]any{"name": "Mum"}}
		if !reflect.DeepEqual(got["guardians"], want) {
			t.Errorf("guardians = %#v, want %#v", got["guardians"], want)
		}
	})

	t.Run("profile object becomes array of one", func(t *testing.T) {
		got := Normalize(Record{"id": "1", "profile": map[string]any{"bio": "x"}})
		if arr, ok := got["profile"].([]any); !ok || len(arr) != 1 {
			t.Errorf("profile = %#v, want array of one", got["profile"])
		}
	})

	t.Run("empty guardians fall back to default", func(t *testing.T) {
		for _, in := range []any{nil, []any{}, ""} {
			got := Normalize(Record{"id": "1", "guardians": in})
			arr, ok := got["guardians"].([]any)
			if !ok || len(arr) != 1 {
				t.Fatalf("guardians for %#v = %#v, want one default", in, got["guardians"])
			}
			if !reflect.DeepEqual(arr[0], defaultRelation()) {
				t.Errorf("default guardian = %#v", arr[0])
			}
		}
	})

	t.Run("absent relations stay absent", func(t *testing.T) {
		got := Normalize(Record{"id": "1", "title": "Maths"})
		if _, ok := got["guardians"]; ok {
			t.Error("guardians should not be added to records without them")
		}
	})

	t.Run("boolean gender", func(t *testing.T) {
		if g := Normalize(Record{"gender": true})["gender"]; g != "Male" {
			t.Errorf("gender(true) = %v, want Male", g)
		}
		if g := Normalize(Record{"gender": false})["gender"]; g != "Female" {
			t.Errorf("gender(false) = %v, want Female", g)
		}
		if g := Normalize(Record{"gender": "Female"})["gender"]; g != "Female" {
			t.Errorf("string gender should pass through, got %v", g)
		}
	})

	t.Run("picture object becomes data uri", func(t *testing.T) {
		got := Normalize(Record{"picture": map[string]any{"mime": "image/png", "data": "AAAA"}})
		if got["picture"] != "data:image/png;base64,AAAA" {
			t.Errorf("picture = %v", got["picture"])
		}
	})

	t.Run("objects with extra keys are not pictures", func(t *testing.T) {
		obj := map[string]any{"mime": "image/png", "data": "AAAA", "size": 3}
		got := Normalize(Record{"attachment": obj})
		if !reflect.DeepEqual(got["attachment"], obj) {
			t.Errorf("attachment changed: %#v", got["attachment"])
		}
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := Record{"id": "1", "gender": true}
		_ = Normalize(in)
		if in["gender"] != true {
			t.Error("Normalize mutated its input")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		in := Record{"id": "1", "gender": false, "guardians": map[string]any{"name": "Dad"}, "picture": map[string]any{"mime": "image/jpeg", "data": "Zm9v"}}
		once := Normalize(in)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Normalize not idempotent:\n%#v\n%#v", once, twice)
		}
	})
}

func TestStudentInputRecord(t *testing.T) {
	in := StudentInput{
		UID:       "STU001",
		Name:      "Ada",
		Class:     "JSS1",
		Gender:    "Female",
		Guardians: []Guardian{{Name: "Mum", Relationship: "mother"}},
	}

	r := in.Record()
	if r.Key() != "STU001" {
		t.Errorf("expected key STU001, got %q", r.Key())
	}
	if r["class"] != "JSS1" {
		t.Errorf("expected class JSS1, got %v", r["class"])
	}
	if _, ok := r["email"]; ok {
		t.Error("empty email should be omitted")
	}
	if arr, ok := r["guardians"].([]any); !ok || len(arr) != 1 {
		t.Errorf("guardians = %#v", r["guardians"])
	}
}
