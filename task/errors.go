package task

import (
	"errors"
	"fmt"

	"github.com/amonks/mapmend/internal/db"
	"github.com/amonks/mapmend/lock"
	"github.com/amonks/mapmend/user"
)

var (
	// ErrTaskNotFound indicates the requested task is missing.
	ErrTaskNotFound = errors.New("task not found")
	// ErrChallengeNotFound indicates the requested challenge is missing.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrInvalidStatus indicates a task status is invalid.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidStatusTransition indicates an illegal status change.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	// ErrAlreadyBundled indicates a finalizing bundle found the task
	// already stamped by a different bundle.
	ErrAlreadyBundled = errors.New("task already bundled")
	// ErrLockConflict indicates another user holds the task's edit lock.
	ErrLockConflict = lock.ErrLockConflict
	// ErrPermissionDenied indicates the actor lacks the required access.
	ErrPermissionDenied = user.ErrPermissionDenied
	// ErrStorageUnavailable indicates a repeated transient storage fault.
	ErrStorageUnavailable = db.ErrStorageUnavailable
)

func formatInvalidTransitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}

func formatAlreadyBundledError(taskID, currentBundleID, proposedBundleID int64) error {
	return fmt.Errorf("%w: task %d belongs to bundle %d, not %d", ErrAlreadyBundled, taskID, currentBundleID, proposedBundleID)
}

func formatHeldByOtherError(taskID, holderID int64) error {
	return fmt.Errorf("%w: task %d is locked by user %d", ErrLockConflict, taskID, holderID)
}
