package task

import "time"

// Task represents a single unit of correctable map data.
type Task struct {
	// ID is the unique numeric task id.
	ID int64 `gorm:"primaryKey"`

	// ChallengeID is the owning challenge.
	ChallengeID int64 `gorm:"column:parent_id;index"`

	// Name is the short task label.
	Name string

	// Instruction is markdown guidance shown to contributors.
	Instruction string

	// Status is the current completion state. Never empty once the task
	// is initialized.
	Status Status

	// Priority orders work queues. It does not affect the state machine.
	Priority int

	// CompletedBy is the user who finalized the task (nil until then).
	CompletedBy *int64

	// CompletedTimeSpent is milliseconds the contributor reported
	// spending (nil when not reported).
	CompletedTimeSpent *int64

	// MappedOn is when the task was finalized (nil until then).
	MappedOn *time.Time

	// BundleID is the bundle whose finalization stamped this task. Set
	// only at the moment a status transition supplies a bundle id, never
	// at bundle creation.
	BundleID *int64

	// IsBundlePrimary marks the bundle's representative task.
	IsBundlePrimary bool

	// CooperativeWork marks tasks carrying cooperative edit payloads.
	// Such tasks are excluded from bundling. Empty means none.
	CooperativeWork string

	// CreatedAt is when the task row was created.
	CreatedAt time.Time

	// UpdatedAt is when the task row was last modified.
	UpdatedAt time.Time
}

// TableName names the tasks table.
func (Task) TableName() string {
	return "tasks"
}

// Challenge is the parent grouping of tasks. Challenge CRUD lives outside
// the core; these rows carry only what the lifecycle engine consults.
type Challenge struct {
	// ID is the unique numeric challenge id.
	ID int64 `gorm:"primaryKey"`

	// Name is the challenge label.
	Name string

	// OwnerID is the creating user.
	OwnerID int64

	// RequiresReview forces a review cycle on every completion in this
	// challenge, regardless of the contributor's request flag.
	RequiresReview bool

	// CreatedAt is when the challenge row was created.
	CreatedAt time.Time

	// UpdatedAt is when the challenge row was last modified.
	UpdatedAt time.Time
}

// TableName names the challenges table.
func (Challenge) TableName() string {
	return "challenges"
}

// TaskReview is the single review record per task. It is created when a
// completion requires review and never deleted; a re-request supersedes
// the previous cycle in place.
type TaskReview struct {
	// TaskID identifies the reviewed task.
	TaskID int64 `gorm:"primaryKey;column:task_id"`

	// ReviewStatus is the review state.
	ReviewStatus ReviewStatus `gorm:"column:review_status"`

	// ReviewRequestedBy is the contributor who asked for review.
	ReviewRequestedBy *int64 `gorm:"column:review_requested_by"`

	// ReviewedBy is the reviewer who completed the latest cycle.
	ReviewedBy *int64 `gorm:"column:reviewed_by"`

	// ReviewedAt is when the latest cycle completed.
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`

	// ReviewStartedAt is when the current claimant began reviewing.
	ReviewStartedAt *time.Time `gorm:"column:review_started_at"`

	// ReviewClaimedBy is the reviewer currently holding the claim.
	ReviewClaimedBy *int64 `gorm:"column:review_claimed_by"`

	// ReviewClaimedAt is when the claim was taken.
	ReviewClaimedAt *time.Time `gorm:"column:review_claimed_at"`

	// AdditionalReviewers are users who completed secondary passes on
	// this task across cycles.
	AdditionalReviewers []int64 `gorm:"column:additional_reviewers;serializer:json"`

	// MetaReviewedBy is the meta-reviewer, when a meta review happened.
	MetaReviewedBy *int64 `gorm:"column:meta_reviewed_by"`
}

// TableName names the task review table.
func (TaskReview) TableName() string {
	return "task_review"
}

// HasOpenReview reports whether the record is awaiting a reviewer
// decision.
func (r *TaskReview) HasOpenReview() bool {
	return r != nil && r.ReviewStatus == ReviewRequested
}

// ClaimedBy reports whether userID currently holds the review claim.
func (r *TaskReview) ClaimedBy(userID int64) bool {
	return r != nil && r.ReviewClaimedBy != nil && *r.ReviewClaimedBy == userID
}
