package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

// Collection names double as snapshot keys.
const (
	StudentsCollection = "students"
	ResultsCollection  = "results"
)

// StudentService performs validated writes against /api/students.
type StudentService struct {
	collection *Collection
	validator  *shared.Validator
}

// NewStudentService creates a [StudentService] over the students collection.
func NewStudentService(collection *Collection, v *shared.Validator) *StudentService {
	if v == nil {
		v = shared.NewValidator()
	}
	return &StudentService{collection: collection, validator: v}
}

// Collection returns the underlying students collection.
func (s *StudentService) Collection() *Collection {
	return s.collection
}

// Create validates in and posts it.
//
// When the backend response carries no record, the submitted fields are returned instead.
func (s *StudentService) Create(ctx context.Context, in models.StudentInput) (models.Record, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	record, err := s.collection.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	if record == nil {
		record = in.Record()
	}
	return models.Normalize(record), nil
}

// Update validates in and replaces the student identified by id.
func (s *StudentService) Update(ctx context.Context, id string, in models.StudentInput) (models.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: student id", shared.ErrMissingArgument)
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	record, err := s.collection.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update student %s: %w", id, err)
	}
	if record == nil {
		record = in.Record()
	}
	if _, ok := record["id"]; !ok {
		record["id"] = id
	}
	return models.Normalize(record), nil
}

// Delete removes the student identified by id.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: student id", shared.ErrMissingArgument)
	}
	if err := s.collection.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to delete student %s: %w", id, err)
	}
	return nil
}
