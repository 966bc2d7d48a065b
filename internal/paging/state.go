package paging

// State is the loader's position in its lifecycle.
type State int

const (
	Idle State = iota
	FetchingFirstPage
	FetchingNextPage
	Drained
	Halted
	Unmounted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingFirstPage:
		return "fetching_first_page"
	case FetchingNextPage:
		return "fetching_next_page"
	case Drained:
		return "drained"
	case Halted:
		return "halted"
	case Unmounted:
		return "unmounted"
	default:
		return ""
	}
}

// Fetching reports whether a page request is in flight or scheduled.
func (s State) Fetching() bool {
	return s == FetchingFirstPage || s == FetchingNextPage
}
