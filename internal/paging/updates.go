package paging

import "fmt"

// Update represents a progress event from a [Loader].
//
// Used to drive status lines and notifications in the CLI or UI layer.
type Update struct {
	Phase      Phase  // What happened
	State      State  // Loader state after the event
	Collection string // Collection being loaded
	Page       int    // Pages merged since mount
	Records    int    // Records in the list after the event
	Added      int    // Records admitted by this page
	HasMore    bool   // Whether another page can be requested
	Message    string // Human-readable message for display
	Err        error  // Set for PhaseHalted
}

// Phase enumerates loader events.
type Phase int

const (
	PhaseRestored Phase = iota
	PhaseFetching
	PhaseMerged
	PhaseDrained
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseRestored:
		return "restored"
	case PhaseFetching:
		return "fetching"
	case PhaseMerged:
		return "merged"
	case PhaseDrained:
		return "drained"
	case PhaseHalted:
		return "halted"
	default:
		return ""
	}
}

// Notify reports whether the update should be shown to the user as a notification.
func (u Update) Notify() bool {
	return u.Phase == PhaseHalted
}

func restoredUpdate(collection string, records int, restored, hasMore bool) Update {
	msg := fmt.Sprintf("No cached %s", collection)
	if restored {
		msg = fmt.Sprintf("Restored %d cached %s", records, collection)
	}
	return Update{
		Phase:      PhaseRestored,
		State:      Idle,
		Collection: collection,
		Records:    records,
		HasMore:    hasMore,
		Message:    msg,
	}
}

func fetchingUpdate(collection string, state State, page, records int) Update {
	return Update{
		Phase:      PhaseFetching,
		State:      state,
		Collection: collection,
		Page:       page,
		Records:    records,
		HasMore:    true,
		Message:    fmt.Sprintf("Loading %s (page %d)...", collection, page+1),
	}
}

func mergedUpdate(collection string, state State, page, records, added int, hasMore bool) Update {
	u := Update{
		Phase:      PhaseMerged,
		State:      state,
		Collection: collection,
		Page:       page,
		Records:    records,
		Added:      added,
		HasMore:    hasMore,
		Message:    fmt.Sprintf("Loaded %d %s (+%d)", records, collection, added),
	}
	if state == Drained {
		u.Phase = PhaseDrained
		u.Message = fmt.Sprintf("All %d %s loaded", records, collection)
	}
	return u
}

func haltedUpdate(collection string, page, records int, hasMore bool, err error) Update {
	return Update{
		Phase:      PhaseHalted,
		State:      Halted,
		Collection: collection,
		Page:       page,
		Records:    records,
		HasMore:    hasMore,
		Message:    fmt.Sprintf("Could not load more %s: %v", collection, err),
		Err:        err,
	}
}
