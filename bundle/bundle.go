// Package bundle groups tasks into units that are completed and reviewed
// as one.
//
// A bundle at creation time is only a proposed grouping: member tasks are
// not stamped with the bundle id until a status transition finalizes the
// group, so a task may sit in any number of proposed bundles until one of
// them wins. An overlapping proposal that finalizes second fails with
// ErrAlreadyBundled. Deleting a bundle removes the grouping record and
// nothing else; stamps on already-finalized tasks survive.
//
// Bundle-scoped status and review operations cascade from the primary
// task to every member inside one transaction, so a failing member rolls
// the whole cascade back.
package bundle

import "time"

// Bundle is a named grouping of tasks from one challenge.
type Bundle struct {
	// ID is the unique numeric bundle id.
	ID int64 `gorm:"primaryKey"`

	// Name is the bundle label.
	Name string

	// OwnerID is the creating user. Only the owner or a super user may
	// delete or shrink the bundle.
	OwnerID int64

	// ChallengeID is the challenge all members belong to.
	ChallengeID int64

	// PrimaryTaskID designates the representative member used for review
	// navigation.
	PrimaryTaskID int64

	// CreatedAt is when the bundle was created.
	CreatedAt time.Time

	// TaskIDs are the member task ids in bundle order. Loaded from the
	// membership rows, not stored on this row.
	TaskIDs []int64 `gorm:"-"`
}

// TableName names the bundles table.
func (Bundle) TableName() string {
	return "bundles"
}

// Member records one task's membership in a bundle.
type Member struct {
	// BundleID is the owning bundle.
	BundleID int64 `gorm:"primaryKey"`

	// TaskID is the member task.
	TaskID int64 `gorm:"primaryKey"`

	// Position preserves bundle order.
	Position int
}

// TableName names the bundle membership table.
func (Member) TableName() string {
	return "bundle_members"
}
