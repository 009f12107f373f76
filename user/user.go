// Package user defines the acting identity passed explicitly to every
// core operation, and the permission gate consulted before mutations.
//
// Authentication and role evaluation live outside this module; the gate
// is an interface so the transport layer can plug in whatever policy
// engine it uses. The implementations here cover the default open-mapping
// policy and the static grants used by tests.
package user

import (
	"context"
	"errors"
	"fmt"
)

// ErrPermissionDenied indicates the actor lacks the required access.
var ErrPermissionDenied = errors.New("permission denied")

// User identifies the actor performing an operation.
type User struct {
	// ID is the unique numeric user id.
	ID int64

	// Name is the display name, used in messages and notifications.
	Name string

	// SuperUser grants access everywhere, including self-review and
	// other users' bundles.
	SuperUser bool
}

// PermissionGate authorizes callers before core operations touch a
// challenge's tasks. Implementations must be safe for concurrent use.
type PermissionGate interface {
	// RequireRead returns ErrPermissionDenied if u may not read tasks
	// belonging to the challenge.
	RequireRead(ctx context.Context, u User, challengeID int64) error

	// RequireWrite returns ErrPermissionDenied if u may not mutate tasks
	// belonging to the challenge.
	RequireWrite(ctx context.Context, u User, challengeID int64) error
}

// OpenGate grants every user read and write access to every challenge.
// This matches the default policy of an open mapping platform where any
// signed-in contributor may work on any task.
type OpenGate struct{}

// RequireRead always succeeds.
func (OpenGate) RequireRead(ctx context.Context, u User, challengeID int64) error {
	return nil
}

// RequireWrite always succeeds.
func (OpenGate) RequireWrite(ctx context.Context, u User, challengeID int64) error {
	return nil
}

// StaticGate authorizes from fixed per-challenge grant lists. Super users
// bypass the lists. Intended for tests and small deployments.
type StaticGate struct {
	// Readers maps challenge id to user ids with read access. A missing
	// entry denies everyone but super users.
	Readers map[int64][]int64

	// Writers maps challenge id to user ids with write access.
	Writers map[int64][]int64
}

// RequireRead checks the reader grant list for the challenge.
func (g *StaticGate) RequireRead(ctx context.Context, u User, challengeID int64) error {
	if u.SuperUser || containsUser(g.Readers[challengeID], u.ID) {
		return nil
	}
	return fmt.Errorf("%w: user %d cannot read challenge %d", ErrPermissionDenied, u.ID, challengeID)
}

// RequireWrite checks the writer grant list for the challenge.
func (g *StaticGate) RequireWrite(ctx context.Context, u User, challengeID int64) error {
	if u.SuperUser || containsUser(g.Writers[challengeID], u.ID) {
		return nil
	}
	return fmt.Errorf("%w: user %d cannot write challenge %d", ErrPermissionDenied, u.ID, challengeID)
}

func containsUser(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
