// Package task implements the task lifecycle core: the data model, the
// status state machine, and the transition engine that commits status
// changes against the relational store.
//
// A task is a unit of correctable map data owned by a challenge. Its
// status moves through a fixed legality table: contributors complete
// tasks out of Created, terminal statuses admit no further work, and
// Deleted acts as an escape hatch reachable from any state. Every
// transition commits as a single storage transaction so concurrent
// contributors racing on the same task serialize on the row lock.
package task

// Status represents the completion state of a task.
type Status string

const (
	// StatusCreated indicates the task is available to work on.
	StatusCreated Status = "created"

	// StatusFixed indicates the contributor fixed the map feature.
	StatusFixed Status = "fixed"

	// StatusFalsePositive indicates the reported issue was not real.
	StatusFalsePositive Status = "false_positive"

	// StatusSkipped indicates the contributor passed on the task.
	StatusSkipped Status = "skipped"

	// StatusDeleted indicates the task was removed from circulation.
	StatusDeleted Status = "deleted"

	// StatusAlreadyFixed indicates someone outside the system fixed it.
	StatusAlreadyFixed Status = "already_fixed"

	// StatusTooHard indicates the contributor could not complete it.
	StatusTooHard Status = "too_hard"
)

// ValidStatuses returns all valid status values.
func ValidStatuses() []Status {
	return []Status{
		StatusCreated,
		StatusFixed,
		StatusFalsePositive,
		StatusSkipped,
		StatusDeleted,
		StatusAlreadyFixed,
		StatusTooHard,
	}
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no transition out of the status is legal
// except the Deleted escape hatch.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFixed, StatusAlreadyFixed:
		return true
	default:
		return false
	}
}

// IsCompletion returns true for statuses that finalize work on a task.
func (s Status) IsCompletion() bool {
	switch s {
	case StatusFixed, StatusFalsePositive, StatusAlreadyFixed:
		return true
	default:
		return false
	}
}

// allowedTargets is the transition legality table. Two cases live outside
// it: any status may move to StatusDeleted, and a transition to the
// current status is a no-op success.
var allowedTargets = map[Status][]Status{
	StatusCreated: {
		StatusFixed,
		StatusFalsePositive,
		StatusSkipped,
		StatusAlreadyFixed,
		StatusTooHard,
	},
	StatusFixed:         {},
	StatusFalsePositive: {StatusFixed},
	StatusSkipped:       {StatusFixed, StatusFalsePositive, StatusAlreadyFixed},
	StatusTooHard:       {StatusFixed, StatusFalsePositive, StatusAlreadyFixed},
	StatusDeleted:       {StatusCreated},
	StatusAlreadyFixed:  {},
}

// CanTransition reports whether moving from one status to another is
// legal. Same-status moves and moves to StatusDeleted are always legal.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if to == StatusDeleted {
		return true
	}
	for _, target := range allowedTargets[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ReviewStatus represents the state of a task's review record.
type ReviewStatus string

const (
	// ReviewRequested indicates the task awaits a reviewer.
	ReviewRequested ReviewStatus = "requested"

	// ReviewApproved indicates the reviewer accepted the work.
	ReviewApproved ReviewStatus = "approved"

	// ReviewRejected indicates the reviewer sent the work back.
	ReviewRejected ReviewStatus = "rejected"

	// ReviewAssisted indicates the reviewer accepted after fixing issues
	// themselves.
	ReviewAssisted ReviewStatus = "assisted"

	// ReviewDisputed indicates the contributor contests the outcome.
	ReviewDisputed ReviewStatus = "disputed"

	// ReviewUnnecessary indicates review was administratively waived.
	ReviewUnnecessary ReviewStatus = "unnecessary"
)

// ValidReviewStatuses returns all valid review status values.
func ValidReviewStatuses() []ReviewStatus {
	return []ReviewStatus{
		ReviewRequested,
		ReviewApproved,
		ReviewRejected,
		ReviewAssisted,
		ReviewDisputed,
		ReviewUnnecessary,
	}
}

// IsValid returns true if the review status is a known valid value.
func (s ReviewStatus) IsValid() bool {
	for _, valid := range ValidReviewStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}
