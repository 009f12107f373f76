package bundle

import (
	"errors"
	"fmt"

	"github.com/amonks/mapmend/task"
	"github.com/amonks/mapmend/user"
)

var (
	// ErrBundleNotFound indicates the requested bundle is missing.
	ErrBundleNotFound = errors.New("bundle not found")
	// ErrAlreadyBundled indicates a finalizing cascade found a member
	// already stamped by a different bundle.
	ErrAlreadyBundled = task.ErrAlreadyBundled
	// ErrInvalidBundle indicates the member list cannot form a bundle:
	// empty, spanning challenges, already-bundled, or cooperative-work
	// members.
	ErrInvalidBundle = errors.New("invalid bundle")
	// ErrPermissionDenied indicates the actor lacks the required access.
	ErrPermissionDenied = user.ErrPermissionDenied
)

func formatEmptyBundleError() error {
	return fmt.Errorf("%w: no tasks given", ErrInvalidBundle)
}

func formatCrossChallengeError(taskID, challengeID, expectedChallengeID int64) error {
	return fmt.Errorf("%w: task %d belongs to challenge %d, not %d", ErrInvalidBundle, taskID, challengeID, expectedChallengeID)
}

func formatAlreadyBundledError(taskID, bundleID int64) error {
	return fmt.Errorf("%w: task %d is already in bundle %d", ErrInvalidBundle, taskID, bundleID)
}

func formatCooperativeError(taskID int64) error {
	return fmt.Errorf("%w: task %d carries cooperative work", ErrInvalidBundle, taskID)
}

func formatNotOwnerError(bundleID, userID int64) error {
	return fmt.Errorf("%w: user %d does not own bundle %d", ErrPermissionDenied, userID, bundleID)
}
