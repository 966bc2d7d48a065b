// Package tasks runs multi-collection jobs on top of [paging.Loader] with progress reporting.
//
// [ExportEngine.Export] drains several collections with a bounded worker pool. Each worker mounts
// a loader against the shared snapshot store, drains it, and writes the list in the requested
// format. A manifest summarising every collection is written last.
//
// All operations report through non-blocking [ProgressUpdate] channels; a slow reader misses
// updates instead of stalling the export.
package tasks
