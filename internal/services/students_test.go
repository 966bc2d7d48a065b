package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

func newStudentService(url string) *StudentService {
	return NewStudentService(NewCollection(NewAPIService(url, nil), StudentsCollection, 10), nil)
}

func TestStudentService(t *testing.T) {
	valid := models.StudentInput{Name: "Ada Obi", Class: "JSS1", Gender: "Female"}

	t.Run("Create", func(t *testing.T) {
		t.Run("Posts And Normalizes", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/students" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				var in map[string]any
				json.NewDecoder(r.Body).Decode(&in)
				if in["name"] != "Ada Obi" {
					t.Errorf("expected name in payload, got %v", in)
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id":"s-1","name":"Ada Obi","gender":false}`))
			}))
			defer server.Close()

			record, err := newStudentService(server.URL).Create(context.Background(), valid)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if record.Key() != "s-1" {
				t.Errorf("expected key s-1, got %q", record.Key())
			}
			if record["gender"] != "Female" {
				t.Errorf("expected normalized gender, got %v", record["gender"])
			}
		})

		t.Run("Falls Back To Input When Response Has No Record", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"message":"created"}`))
			}))
			defer server.Close()

			in := valid
			in.UID = "STU9"
			record, err := newStudentService(server.URL).Create(context.Background(), in)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if record.Key() != "STU9" {
				t.Errorf("expected key STU9, got %q", record.Key())
			}
		})

		t.Run("Validation Error Sends Nothing", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}))
			defer server.Close()

			_, err := newStudentService(server.URL).Create(context.Background(), models.StudentInput{Gender: "Other"})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}

			var ve *shared.ValidationError
			if !errors.As(err, &ve) || len(ve.Fields) != 3 {
				t.Errorf("expected 3 field errors, got %v", err)
			}
		})

		t.Run("Backend Rejection", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"error":"uid already exists"}`))
			}))
			defer server.Close()

			_, err := newStudentService(server.URL).Create(context.Background(), valid)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("Puts To Item Path", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut || r.URL.Path != "/api/students/s-1" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				w.Write([]byte(`{"message":"updated"}`))
			}))
			defer server.Close()

			record, err := newStudentService(server.URL).Update(context.Background(), "s-1", valid)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if record.Key() != "s-1" {
				t.Errorf("expected id to be filled in, got %q", record.Key())
			}
		})

		t.Run("Missing ID", func(t *testing.T) {
			_, err := newStudentService("http://127.0.0.1:1").Update(context.Background(), " ", valid)
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("Deletes Item", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete || r.URL.Path != "/api/students/s-1" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			if err := newStudentService(server.URL).Delete(context.Background(), "s-1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			err := newStudentService(server.URL).Delete(context.Background(), "s-1")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})
}
