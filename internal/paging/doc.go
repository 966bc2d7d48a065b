// Package paging drains cursor-paginated collections into a de-duplicated, persisted list.
//
// # Merge
//
// [Merge] combines a fetched page with the current list. In [ModeReplace] the normalized page
// becomes the list; in [ModeAppend] records whose identity key is already present are dropped
// and the rest are appended in fetch order. The existing record always wins, so applying the
// same page twice is a no-op.
//
// # Loader
//
// A [Loader] owns one collection's list for the lifetime of a view:
//
//	Idle → FetchingFirstPage → FetchingNextPage (loop) → Drained
//	Idle → FetchingNextPage                  (restored snapshot with a cursor)
//	any fetching state → Halted             (fetch or persist failure)
//	any state → Unmounted                   (Unmount or parent context cancelled)
//
// [Loader.Mount] seeds the list from the snapshot store synchronously. [Loader.Start] runs the
// background drain, pausing on a [rate.Limiter] between pages. [Loader.LoadMore] fetches one page
// on demand and is suppressed while any other fetch is in flight. Every merged page is written
// to the snapshot store before it becomes visible through [Loader.Records].
//
// Progress is reported on an optional [Update] channel. Sends never block; slow consumers miss
// intermediate updates. Cancellation is never reported as an error.
//
// # Scroll Trigger
//
// [NearBottom] decides whether a viewport is close enough to the end of the list to request
// another page.
package paging
