// Package repositories implements SQLite persistence for client-side session state.
//
// The backend owns every school record; the only state this client keeps is the snapshot of each
// paginated list, scoped to a session so ending the session discards it.
//
// Key Implementations:
//   - [SessionRepository] : session lifecycle (start, touch, end, list)
//   - [SessionStore] : a [snapshot.Store] over the session_snapshots table for one session
package repositories
