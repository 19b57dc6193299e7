package core

import "fmt"

// Role identifies one research facet and the worker that owns it.
type Role string

const (
	// RoleHistorian researches biography and historical context.
	RoleHistorian Role = "historian"
	// RoleCartographer compiles the bibliography and reading map.
	RoleCartographer Role = "cartographer"
	// RoleConnector analyses critical legacy and related authors.
	RoleConnector Role = "connector"
)

// Roles is the fixed role order used for sequential dispatch and for report
// sections. Callers must not modify it.
var Roles = []Role{RoleHistorian, RoleCartographer, RoleConnector}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHistorian, RoleCartographer, RoleConnector:
		return true
	default:
		return false
	}
}

// Description returns the human readable specialisation of the role.
func (r Role) Description() string {
	switch r {
	case RoleHistorian:
		return "Biographical and Historical Research Specialist"
	case RoleCartographer:
		return "Bibliography Compilation and Reading Map Expert"
	case RoleConnector:
		return "Literary Analysis and Critical Assessment Specialist"
	default:
		return "Unknown Role"
	}
}

// Tools returns the research capabilities the role's worker covers.
func (r Role) Tools() []string {
	switch r {
	case RoleHistorian:
		return []string{"search_author_biography", "search_historical_context", "search_literary_influences"}
	case RoleCartographer:
		return []string{"search_author_books", "analyze_book_chronology", "categorize_works"}
	case RoleConnector:
		return []string{"search_literary_criticism", "search_themes_and_style"}
	default:
		return nil
	}
}

// Status is the lifecycle state of a role's slot.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Mode selects how the engine schedules workers.
type Mode string

const (
	// ModeParallel dispatches all workers at once.
	ModeParallel Mode = "parallel"
	// ModeSequential runs workers one at a time in Roles order.
	ModeSequential Mode = "sequential"
)

// ParseMode converts a user supplied string into a Mode. The empty string
// yields ModeParallel.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeParallel:
		return ModeParallel, nil
	case ModeSequential:
		return ModeSequential, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q", s)
	}
}
