package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/roster/internal/models"
)

// Create posts payload to the collection and returns the stored record.
func (c *Collection) Create(ctx context.Context, payload any) (models.Record, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	resp, err := c.api.Post(ctx, c.Path(), data)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("created record", "request_id", resp.RequestID)
	return decodeRecord(c.name, resp.Body), nil
}

// Update replaces the record identified by id and returns the stored record.
func (c *Collection) Update(ctx context.Context, id string, payload any) (models.Record, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	resp, err := c.api.Put(ctx, c.ItemPath(id), data)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("updated record", "id", id, "request_id", resp.RequestID)
	return decodeRecord(c.name, resp.Body), nil
}

// Remove deletes the record identified by id.
func (c *Collection) Remove(ctx context.Context, id string) error {
	resp, err := c.api.Delete(ctx, c.ItemPath(id))
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	c.logger.Info("deleted record", "id", id, "request_id", resp.RequestID)
	return nil
}

// decodeRecord reads a single record from a write response.
//
// The backend answers with the record itself, or wraps it under "data" or the singular
// collection name. Anything else yields nil.
func decodeRecord(collection string, body []byte) models.Record {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil
	}

	for _, field := range []string{"data", singular(collection)} {
		if inner, ok := obj[field].(map[string]any); ok {
			return models.Record(inner)
		}
	}

	if models.Record(obj).Key() != "" {
		return models.Record(obj)
	}
	return nil
}

func singular(collection string) string {
	if n := len(collection); n > 1 && collection[n-1] == 's' {
		return collection[:n-1]
	}
	return collection
}
