package paging

import (
	"context"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/snapshot"
)

// Rewrite applies fn to the stored list for collection and saves the result with the same cursor.
//
// It returns false without writing when no snapshot exists; the next mount fetches fresh data
// anyway.
func Rewrite(ctx context.Context, store snapshot.Store, collection string, fn func([]models.Record) []models.Record) (bool, error) {
	s, ok, err := snapshot.Load(ctx, store, collection)
	if err != nil || !ok {
		return false, err
	}

	s.Records = fn(s.Records)
	if err := snapshot.Save(ctx, store, collection, s); err != nil {
		return false, err
	}
	return true, nil
}

// UpsertSnapshot writes r into the stored list, replacing the record with the same key.
func UpsertSnapshot(ctx context.Context, store snapshot.Store, collection string, r models.Record) (bool, error) {
	return Rewrite(ctx, store, collection, func(list []models.Record) []models.Record {
		return Upsert(list, r)
	})
}

// RemoveFromSnapshot drops the record identified by key from the stored list.
func RemoveFromSnapshot(ctx context.Context, store snapshot.Store, collection, key string) (bool, error) {
	return Rewrite(ctx, store, collection, func(list []models.Record) []models.Record {
		return Remove(list, key)
	})
}
