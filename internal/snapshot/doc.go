// Package snapshot persists the last-known list of records and its pagination cursor.
//
// A snapshot is a best-effort copy of what the list view last rendered. It is read once when a
// [paging.Loader] mounts, and overwritten after every successful merge. Storage is abstracted
// behind [Store] so the same codec works over process memory ([MemoryStore]) and the SQLite
// session store in the repositories package.
//
// Snapshots are encoded as
//
//	{"<collection>": [...records], "nextPageToken": "c2" | null}
//
// and stored under the collection name.
package snapshot
