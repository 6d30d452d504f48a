package search

import "github.com/s0up4200/cinerec/catalog"

// Mode says which result set is authoritative for display
type Mode int

const (
	ModeCatalog Mode = iota
	ModeSearch
)

func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "catalog"
}

// State is the orchestrator's fetch state
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateFetching
)

func (s State) String() string {
	switch s {
	case StateDebouncing:
		return "debouncing"
	case StateFetching:
		return "fetching"
	default:
		return "idle"
	}
}

// View is the displayed result set. Items and Total always belong to the
// latest applied request; Err is set when that request failed.
type View struct {
	Mode     Mode
	Query    string
	Page     int
	PageSize int
	Items    []catalog.Movie
	Total    int
	State    State
	Err      error
}

// TotalPages returns the page count for the current result set
func (v View) TotalPages() int {
	if v.PageSize <= 0 || v.Total <= 0 {
		return 0
	}
	return (v.Total + v.PageSize - 1) / v.PageSize
}
