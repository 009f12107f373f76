package review

import (
	"errors"
	"fmt"

	"github.com/amonks/mapmend/task"
	"github.com/amonks/mapmend/user"
)

var (
	// ErrAlreadyClaimed indicates a different reviewer holds the claim.
	ErrAlreadyClaimed = errors.New("review already claimed")
	// ErrInvalidReviewTransition indicates a review operation on a record
	// not in a state that admits it.
	ErrInvalidReviewTransition = errors.New("invalid review transition")
	// ErrInvalidOrder indicates an unrecognized sort order.
	ErrInvalidOrder = errors.New("invalid sort order")
	// ErrPermissionDenied indicates the actor lacks the required access.
	ErrPermissionDenied = user.ErrPermissionDenied
	// ErrTaskNotFound indicates the requested task is missing.
	ErrTaskNotFound = task.ErrTaskNotFound
)

func formatAlreadyClaimedError(taskID, holderID int64) error {
	return fmt.Errorf("%w: task %d review is claimed by user %d", ErrAlreadyClaimed, taskID, holderID)
}

func formatNoOpenReviewError(taskID int64) error {
	return fmt.Errorf("%w: task %d has no open review", ErrInvalidReviewTransition, taskID)
}

func formatSelfReviewError(taskID int64) error {
	return fmt.Errorf("%w: cannot review task %d you requested review for", ErrPermissionDenied, taskID)
}

func formatNotClaimantError(taskID, userID int64) error {
	return fmt.Errorf("%w: user %d does not hold the review claim on task %d", ErrPermissionDenied, userID, taskID)
}

func formatBadDecisionError(status task.ReviewStatus) error {
	return fmt.Errorf("%w: %q is not a review decision", ErrInvalidReviewTransition, status)
}

func formatUnnecessaryError(taskID int64) error {
	return fmt.Errorf("%w: only a super user may waive review on task %d", ErrPermissionDenied, taskID)
}
