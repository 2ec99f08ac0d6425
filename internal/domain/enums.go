package domain

import "fmt"

// Status is a board column. The set is closed; rows carrying any other value
// are quarantined at the ingestion boundary instead of reaching the board.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses returns all board columns in display order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Label returns the human-readable column name used in activity entries.
func (s Status) Label() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusReview:
		return "Review"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Stage is a customer's position in the funding pipeline.
type Stage string

const (
	StageLead         Stage = "lead"
	StageContacted    Stage = "contacted"
	StageApplication  Stage = "application"
	StageUnderwriting Stage = "underwriting"
	StageOffer        Stage = "offer"
	StageFunded       Stage = "funded"
	StageLost         Stage = "lost"
)

// Stages returns pipeline stages in funnel order.
func Stages() []Stage {
	return []Stage{StageLead, StageContacted, StageApplication, StageUnderwriting, StageOffer, StageFunded, StageLost}
}

func ParseStage(s string) (Stage, error) {
	for _, st := range Stages() {
		if Stage(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// rank returns the funnel position; lost sits outside the funnel.
func (s Stage) rank() int {
	for i, st := range Stages() {
		if s == st {
			return i
		}
	}
	return -1
}

// CanTransition reports whether a stage move is allowed without force:
// forward through the funnel one or more steps, or any stage to lost.
func (s Stage) CanTransition(to Stage) bool {
	if to == StageLost {
		return s != StageLost
	}
	return to.rank() > s.rank() && s != StageLost
}

// Role gates API and CLI operations. Ordering matters: each role includes
// everything below it.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) level() int {
	switch r {
	case RoleUser:
		return 0
	case RoleAdmin:
		return 1
	case RoleSuperAdmin:
		return 2
	}
	return -1
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r.level() >= min.level()
}
