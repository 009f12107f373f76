// Package review implements the review workflow layered over completed
// tasks: claiming, approving, rejecting, disputing, and the review work
// queue.
//
// At most one reviewer holds a task's review claim at a time; the claim
// is taken and released inside the same transaction that reads it, so
// two reviewers racing on one task serialize on the review row. A task's
// review record is never deleted; a re-request supersedes the previous
// cycle in place, preserving multi-pass history.
package review

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/amonks/mapmend/internal/notify"
	"github.com/amonks/mapmend/internal/validation"
	"github.com/amonks/mapmend/task"
	"github.com/amonks/mapmend/user"
)

// Criteria is free-form search input interpreted by the external search
// collaborator. The workflow passes it through untouched.
type Criteria map[string]string

// Searcher narrows the review queue to tasks matching search criteria.
// The dynamic query building behind it lives outside this module.
type Searcher interface {
	FilterTasks(ctx context.Context, criteria Criteria) ([]int64, error)
}

// Order directs review-queue pagination.
type Order string

const (
	// OrderAsc walks task ids ascending.
	OrderAsc Order = "asc"

	// OrderDesc walks task ids descending.
	OrderDesc Order = "desc"
)

// ValidOrders returns all valid order values.
func ValidOrders() []Order {
	return []Order{OrderAsc, OrderDesc}
}

// IsValid returns true if the order is a known valid value.
func (o Order) IsValid() bool {
	return o == OrderAsc || o == OrderDesc
}

// Workflow manages review claims and decisions.
type Workflow struct {
	store      *task.Store
	gate       user.PermissionGate
	dispatcher notify.Dispatcher
	searcher   Searcher
	staleAfter time.Duration

	// Now returns the current time. Overridable in tests.
	Now func() time.Time
}

// NewWorkflow builds a review workflow. searcher may be nil, in which
// case NextTaskReview considers every task with an open review.
// staleAfter bounds how long an untouched claim survives the sweep.
func NewWorkflow(store *task.Store, gate user.PermissionGate, dispatcher notify.Dispatcher, searcher Searcher, staleAfter time.Duration) *Workflow {
	if dispatcher == nil {
		dispatcher = notify.Noop{}
	}
	return &Workflow{
		store:      store,
		gate:       gate,
		dispatcher: dispatcher,
		searcher:   searcher,
		staleAfter: staleAfter,
		Now:        time.Now,
	}
}

// StartReview claims the task's open review for the reviewer. Fails with
// ErrAlreadyClaimed when a different reviewer holds the claim, and
// forbids self-review unless the reviewer is a super user.
func (w *Workflow) StartReview(ctx context.Context, reviewer user.User, taskID int64) (*task.TaskReview, error) {
	var (
		claimed *task.TaskReview
		pending []notify.Event
	)
	err := w.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		claimed, pending, err = w.ApplyStartTx(ctx, tx, reviewer, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.dispatch(pending)
	return claimed, nil
}

// ApplyStartTx is StartReview inside an existing transaction. Bundle
// cascades use this form.
func (w *Workflow) ApplyStartTx(ctx context.Context, tx *gorm.DB, reviewer user.User, taskID int64) (*task.TaskReview, []notify.Event, error) {
	t, review, err := w.openReviewTx(ctx, tx, reviewer, taskID)
	if err != nil {
		return nil, nil, err
	}

	if review.ReviewRequestedBy != nil && *review.ReviewRequestedBy == reviewer.ID && !reviewer.SuperUser {
		return nil, nil, formatSelfReviewError(taskID)
	}
	if review.ReviewClaimedBy != nil && *review.ReviewClaimedBy != reviewer.ID {
		return nil, nil, formatAlreadyClaimedError(taskID, *review.ReviewClaimedBy)
	}

	now := w.Now()
	review.ReviewClaimedBy = &reviewer.ID
	review.ReviewClaimedAt = &now
	review.ReviewStartedAt = &now

	if err := w.store.SaveReviewTx(tx, review); err != nil {
		return nil, nil, err
	}

	event := notify.NewEvent(notify.EventReviewClaimed, t.ID, t.ChallengeID, reviewer.ID)
	event.TargetUserID = review.ReviewRequestedBy
	return review, []notify.Event{event}, nil
}

// CancelReview releases the reviewer's claim without a decision. Only the
// claimant or a super user may cancel.
func (w *Workflow) CancelReview(ctx context.Context, reviewer user.User, taskID int64) (*task.TaskReview, error) {
	var cancelled *task.TaskReview
	err := w.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		_, review, err := w.openReviewTx(ctx, tx, reviewer, taskID)
		if err != nil {
			return err
		}

		if !review.ClaimedBy(reviewer.ID) && !reviewer.SuperUser {
			return formatNotClaimantError(taskID, reviewer.ID)
		}

		review.ReviewClaimedBy = nil
		review.ReviewClaimedAt = nil
		review.ReviewStartedAt = nil

		if err := w.store.SaveReviewTx(tx, review); err != nil {
			return err
		}
		cancelled = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// SetReviewStatus records the reviewer's decision. Approved, Assisted,
// and Rejected complete the cycle and notify the requester; Disputed
// re-enters the queue; Unnecessary is an administrative sink restricted
// to super users.
func (w *Workflow) SetReviewStatus(ctx context.Context, reviewer user.User, taskID int64, newStatus task.ReviewStatus, comment string) (*task.TaskReview, error) {
	var (
		updated *task.TaskReview
		pending []notify.Event
	)
	err := w.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		updated, pending, err = w.ApplyStatusTx(ctx, tx, reviewer, taskID, newStatus, comment)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.dispatch(pending)
	return updated, nil
}

// ApplyStatusTx is SetReviewStatus inside an existing transaction.
func (w *Workflow) ApplyStatusTx(ctx context.Context, tx *gorm.DB, reviewer user.User, taskID int64, newStatus task.ReviewStatus, comment string) (*task.TaskReview, []notify.Event, error) {
	if !newStatus.IsValid() {
		return nil, nil, validation.FormatInvalidValueError(ErrInvalidReviewTransition, newStatus, task.ValidReviewStatuses())
	}
	if newStatus == task.ReviewRequested {
		return nil, nil, formatBadDecisionError(newStatus)
	}
	if newStatus == task.ReviewUnnecessary && !reviewer.SuperUser {
		return nil, nil, formatUnnecessaryError(taskID)
	}

	t, review, err := w.openReviewTx(ctx, tx, reviewer, taskID)
	if err != nil {
		return nil, nil, err
	}

	if newStatus != task.ReviewUnnecessary && !review.ClaimedBy(reviewer.ID) && !reviewer.SuperUser {
		return nil, nil, formatNotClaimantError(taskID, reviewer.ID)
	}

	// A different reviewer completing a later pass on the same task is
	// recorded as an additional reviewer, preserving multi-pass history.
	if review.ReviewedBy != nil && *review.ReviewedBy != reviewer.ID {
		review.AdditionalReviewers = appendReviewer(review.AdditionalReviewers, reviewer.ID)
	}

	now := w.Now()
	review.ReviewedBy = &reviewer.ID
	review.ReviewedAt = &now
	review.ReviewClaimedBy = nil
	review.ReviewClaimedAt = nil
	review.ReviewStartedAt = nil

	var pending []notify.Event
	switch newStatus {
	case task.ReviewDisputed:
		// A dispute re-enters the review queue immediately.
		review.ReviewStatus = task.ReviewRequested
		event := notify.NewEvent(notify.EventReviewDisputed, t.ID, t.ChallengeID, reviewer.ID)
		event.TargetUserID = review.ReviewRequestedBy
		event.Comment = comment
		pending = append(pending, event)
	case task.ReviewApproved, task.ReviewAssisted, task.ReviewRejected:
		review.ReviewStatus = newStatus
		event := notify.NewEvent(notify.EventReviewCompleted, t.ID, t.ChallengeID, reviewer.ID)
		event.TargetUserID = review.ReviewRequestedBy
		event.Status = string(newStatus)
		event.Comment = comment
		pending = append(pending, event)
	default:
		review.ReviewStatus = newStatus
	}

	if err := w.store.SaveReviewTx(tx, review); err != nil {
		return nil, nil, err
	}
	return review, pending, nil
}

// ReclaimStaleClaims resets claims whose review started longer ago than
// the configured window, returning how many were reclaimed. Review claims
// have no TTL of their own; this sweep is the only claim timeout.
func (w *Workflow) ReclaimStaleClaims(ctx context.Context) (int64, error) {
	if w.staleAfter <= 0 {
		return 0, nil
	}

	cutoff := w.Now().Add(-w.staleAfter)
	var reclaimed int64
	err := w.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&task.TaskReview{}).
			Where("review_status = ?", task.ReviewRequested).
			Where("review_claimed_by IS NOT NULL").
			Where("review_started_at < ?", cutoff).
			Updates(map[string]any{
				"review_claimed_by": nil,
				"review_claimed_at": nil,
				"review_started_at": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		reclaimed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reclaimed, nil
}

// openReviewTx loads the task and its open review record, taking the
// review row lock. The task load first distinguishes a missing task from
// a task with no review.
func (w *Workflow) openReviewTx(ctx context.Context, tx *gorm.DB, reviewer user.User, taskID int64) (*task.Task, *task.TaskReview, error) {
	t, err := w.store.GetTaskTx(tx, taskID, false)
	if err != nil {
		return nil, nil, err
	}

	if err := w.gate.RequireWrite(ctx, reviewer, t.ChallengeID); err != nil {
		return nil, nil, err
	}

	review, err := w.store.GetReviewTx(tx, taskID, true)
	if err != nil {
		return nil, nil, err
	}
	if !review.HasOpenReview() {
		return nil, nil, formatNoOpenReviewError(taskID)
	}
	return t, review, nil
}

func (w *Workflow) dispatch(events []notify.Event) {
	for _, event := range events {
		w.dispatcher.Dispatch(event)
	}
}

func appendReviewer(reviewers []int64, id int64) []int64 {
	for _, existing := range reviewers {
		if existing == id {
			return reviewers
		}
	}
	return append(reviewers, id)
}
