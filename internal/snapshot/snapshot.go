package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

const cursorField = "nextPageToken"

// Snapshot is the persisted list state for one collection.
type Snapshot struct {
	Records       []models.Record
	NextPageToken *string
}

// HasMore reports whether the snapshot ended mid-pagination.
func (s Snapshot) HasMore() bool {
	return s.NextPageToken != nil
}

// Encode renders s with its records under the collection name.
func Encode(collection string, s Snapshot) ([]byte, error) {
	records := s.Records
	if records == nil {
		records = []models.Record{}
	}

	body := map[string]any{
		collection:  records,
		cursorField: s.NextPageToken,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s snapshot: %w", collection, err)
	}
	return data, nil
}

// Decode parses a snapshot written by [Encode].
//
// A missing records field decodes as an empty list. Anything that is not a JSON object with an
// array of objects under collection returns [shared.ErrSnapshotCorrupt].
func Decode(collection string, data []byte) (Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var body map[string]json.RawMessage
	if err := dec.Decode(&body); err != nil || body == nil {
		return Snapshot{}, fmt.Errorf("%w: %s", shared.ErrSnapshotCorrupt, collection)
	}

	var s Snapshot
	if raw, ok := body[collection]; ok && !isNull(raw) {
		records, err := models.DecodeRecords(raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", shared.ErrSnapshotCorrupt, collection, err)
		}
		s.Records = records
	}

	if raw, ok := body[cursorField]; ok && !isNull(raw) {
		var token string
		if err := json.Unmarshal(raw, &token); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s cursor: %v", shared.ErrSnapshotCorrupt, collection, err)
		}
		s.NextPageToken = &token
	}

	if s.Records == nil {
		s.Records = []models.Record{}
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Load reads and decodes the snapshot for collection.
//
// The boolean is false when no snapshot exists. Corrupt snapshots are returned as errors so the
// caller can decide whether to discard them.
func Load(ctx context.Context, store Store, collection string) (Snapshot, bool, error) {
	data, err := store.Get(ctx, collection)
	if errors.Is(err, shared.ErrSnapshotNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to read %s snapshot: %w", collection, err)
	}

	s, err := Decode(collection, data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}

// Save encodes s and writes it under collection, overwriting any previous snapshot.
func Save(ctx context.Context, store Store, collection string, s Snapshot) error {
	data, err := Encode(collection, s)
	if err != nil {
		return err
	}

	if err := store.Set(ctx, collection, data); err != nil {
		return fmt.Errorf("failed to write %s snapshot: %w", collection, err)
	}
	return nil
}

// Clear removes the snapshot for collection.
func Clear(ctx context.Context, store Store, collection string) error {
	if err := store.Delete(ctx, collection); err != nil {
		return fmt.Errorf("failed to clear %s snapshot: %w", collection, err)
	}
	return nil
}
