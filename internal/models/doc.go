// Package models defines the entity shapes exchanged with the school-management backend.
//
// The package contains three kinds of types:
//
// 1. Wire records: opaque JSON objects whose only known fields are identities
//   - [Record] : one entity (student, teacher, result, ...) as decoded from the backend
//   - [Page] : one page of records plus the cursor for the next page
//
// 2. Write payloads: typed structs validated before they are sent
//   - [StudentInput] : body of POST /api/students and PUT /api/students/:id
//
// 3. Normalization: [Normalize] maps backend quirks (single guardian objects, boolean genders,
// {mime, data} pictures) into one canonical shape before records are compared or displayed.
//
// Identity is the effective key returned by [Record.Key]: id when present, otherwise uid.
package models
