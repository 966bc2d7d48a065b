// Package services talks to the school-management REST backend.
//
// # API Service
//
// [APIService] wraps an [http.Client] with the backend base URL. Every request carries an
// X-Request-ID header. Idempotent requests (GET, PUT, DELETE) are retried with exponential
// backoff on transport failures and 5xx responses; 4xx responses and cancellation are never
// retried.
//
// Authentication is a bearer token attached by [NewHTTPClient] via [oauth2.StaticTokenSource].
//
// # Collections
//
// [Collection] fetches cursor-paginated pages of any /api/<name> collection. The backend answers
// with either a bare array (a terminal page) or an envelope:
//
//	{"data": [...], "nextPageToken": "c2"}
//	{"students": [...], "nextPageToken": null}
//
// Any other shape is treated as an empty terminal page rather than an error.
//
// # Students
//
// [StudentService] adds validated create, update and delete on top of the students collection.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : non-2xx response, with status and backend message
//   - [shared.ErrServiceUnavailable] : retries exhausted on 5xx
//   - [shared.ErrInvalidInput] : payload failed validation
//
// Cancellation surfaces as [context.Canceled] and should be treated as a no-op by callers.
package services
