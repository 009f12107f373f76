package task

import "testing"

func TestCanTransition(t *testing.T) {
	// Every legal pair outside the two blanket rules (same-status and
	// moves to deleted, which are always legal).
	legal := map[Status][]Status{
		StatusCreated:       {StatusFixed, StatusFalsePositive, StatusSkipped, StatusAlreadyFixed, StatusTooHard},
		StatusFixed:         {},
		StatusFalsePositive: {StatusFixed},
		StatusSkipped:       {StatusFixed, StatusFalsePositive, StatusAlreadyFixed},
		StatusTooHard:       {StatusFixed, StatusFalsePositive, StatusAlreadyFixed},
		StatusDeleted:       {StatusCreated},
		StatusAlreadyFixed:  {},
	}

	isLegal := func(from, to Status) bool {
		if from == to || to == StatusDeleted {
			return true
		}
		for _, target := range legal[from] {
			if target == to {
				return true
			}
		}
		return false
	}

	for _, from := range ValidStatuses() {
		for _, to := range ValidStatuses() {
			want := isLegal(from, to)
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_TerminalStatuses(t *testing.T) {
	for _, from := range []Status{StatusFixed, StatusAlreadyFixed} {
		if !from.IsTerminal() {
			t.Errorf("expected %s to be terminal", from)
		}
		for _, to := range ValidStatuses() {
			if to == from || to == StatusDeleted {
				continue
			}
			if CanTransition(from, to) {
				t.Errorf("expected no transition out of terminal %s, got %s allowed", from, to)
			}
		}
	}
}

func TestCanTransition_DeletedEscapeHatch(t *testing.T) {
	for _, from := range ValidStatuses() {
		if !CanTransition(from, StatusDeleted) {
			t.Errorf("expected %s -> deleted to be legal", from)
		}
	}
	if !CanTransition(StatusDeleted, StatusCreated) {
		t.Error("expected deleted -> created to be legal")
	}
	if CanTransition(StatusDeleted, StatusFixed) {
		t.Error("expected deleted -> fixed to be illegal")
	}
}

func TestStatus_IsValid(t *testing.T) {
	for _, status := range ValidStatuses() {
		if !status.IsValid() {
			t.Errorf("expected %s to be valid", status)
		}
	}
	if Status("available").IsValid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestStatus_IsCompletion(t *testing.T) {
	completions := map[Status]bool{
		StatusCreated:       false,
		StatusFixed:         true,
		StatusFalsePositive: true,
		StatusSkipped:       false,
		StatusDeleted:       false,
		StatusAlreadyFixed:  true,
		StatusTooHard:       false,
	}
	for status, want := range completions {
		if got := status.IsCompletion(); got != want {
			t.Errorf("IsCompletion(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestReviewStatus_IsValid(t *testing.T) {
	for _, status := range ValidReviewStatuses() {
		if !status.IsValid() {
			t.Errorf("expected %s to be valid", status)
		}
	}
	if ReviewStatus("pending").IsValid() {
		t.Error("expected unknown review status to be invalid")
	}
}
