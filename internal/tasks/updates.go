package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase      Phase  // Operation phase
	Step       int    // Collections finished so far
	Total      int    // Collections in the job
	Collection string // Collection the event is about
	Message    string // Human-readable message for display
	Err        error  // Set for ExportFailed
}

// Operation phase enumeration
type Phase int

const (
	ExportStarted Phase = iota
	ExportCompleted
	ExportFailed
	ManifestWritten
)

func (p Phase) String() string {
	switch p {
	case ExportStarted:
		return "export_started"
	case ExportCompleted:
		return "export_completed"
	case ExportFailed:
		return "export_failed"
	case ManifestWritten:
		return "manifest_written"
	default:
		return ""
	}
}

func sendProgress(ch chan<- ProgressUpdate, u ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	default:
	}
}

func startedUpdate(step, total int, collection string) ProgressUpdate {
	return ProgressUpdate{
		Phase:      ExportStarted,
		Step:       step,
		Total:      total,
		Collection: collection,
		Message:    fmt.Sprintf("Loading %s...", collection),
	}
}

func completedUpdate(step, total int, res CollectionResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:      ExportCompleted,
		Step:       step,
		Total:      total,
		Collection: res.Collection,
		Message:    fmt.Sprintf("[%d/%d] Exported %d %s to %s", step, total, res.Records, res.Collection, res.File),
	}
}

func failedUpdate(step, total int, res CollectionResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:      ExportFailed,
		Step:       step,
		Total:      total,
		Collection: res.Collection,
		Message:    fmt.Sprintf("[%d/%d] Failed to export %s: %v", step, total, res.Collection, res.Err),
		Err:        res.Err,
	}
}

func manifestUpdate(total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ManifestWritten,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
