// Package ui implements an interactive terminal list view using bubbletea's Elm architecture.
//
// The view shows one collection as it is loaded by a [paging.Loader]:
//  1. [ListView] : Browse records; moving near the bottom loads the next page
//  2. [DetailView] : Inspect every field of the selected record
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Loader updates flow through a channel, so the status line tracks background paging without blocking it.
// A halted loader is surfaced as a notification; r remounts and m retries the failed page.
//
// Cursor movement is debounced before the near-bottom check so holding a key issues at most one page request.
package ui
