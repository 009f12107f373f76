package task

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/amonks/mapmend/internal/notify"
	"github.com/amonks/mapmend/internal/validation"
	"github.com/amonks/mapmend/lock"
	"github.com/amonks/mapmend/user"
)

// Engine validates and applies status transitions.
type Engine struct {
	store      *Store
	locks      *lock.Manager
	gate       user.PermissionGate
	dispatcher notify.Dispatcher

	// Now returns the current time. Overridable in tests.
	Now func() time.Time
}

// NewEngine builds a transition engine.
func NewEngine(store *Store, locks *lock.Manager, gate user.PermissionGate, dispatcher notify.Dispatcher) *Engine {
	if dispatcher == nil {
		dispatcher = notify.Noop{}
	}
	return &Engine{
		store:      store,
		locks:      locks,
		gate:       gate,
		dispatcher: dispatcher,
		Now:        time.Now,
	}
}

// Store returns the engine's backing store.
func (e *Engine) Store() *Store {
	return e.store
}

// Locks returns the engine's lock manager.
func (e *Engine) Locks() *lock.Manager {
	return e.locks
}

// SetStatusOptions configures a status transition.
type SetStatusOptions struct {
	// RequestReview asks for a review cycle on completion. A challenge
	// whose policy requires review gets one regardless.
	RequestReview bool

	// TimeSpent is milliseconds the contributor reports spending.
	TimeSpent *int64

	// BundleID stamps the task as a member of the bundle that finalized
	// it. This is the only point at which a task joins a bundle in the
	// persisted record.
	BundleID *int64

	// BundlePrimary marks this task as the bundle's representative.
	// Ignored unless BundleID is set.
	BundlePrimary bool

	// Tags are completion tags carried on the emitted event.
	Tags []string
}

// SetStatus validates and commits a status transition for the actor,
// then emits the resulting events. Setting the current status is a no-op
// success.
func (e *Engine) SetStatus(ctx context.Context, actor user.User, taskID int64, newStatus Status, opts SetStatusOptions) (*Task, error) {
	var (
		updated *Task
		pending []notify.Event
	)
	err := e.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		updated, pending, err = e.ApplyTx(ctx, tx, actor, taskID, newStatus, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, event := range pending {
		e.dispatcher.Dispatch(event)
	}
	return updated, nil
}

// ApplyTx applies a status transition inside an existing transaction and
// returns the events to emit once that transaction commits. Bundle
// cascades use this form so every member commits or rolls back together.
func (e *Engine) ApplyTx(ctx context.Context, tx *gorm.DB, actor user.User, taskID int64, newStatus Status, opts SetStatusOptions) (*Task, []notify.Event, error) {
	if !newStatus.IsValid() {
		return nil, nil, validation.FormatInvalidValueError(ErrInvalidStatus, newStatus, ValidStatuses())
	}

	t, err := e.store.GetTaskTx(tx, taskID, true)
	if err != nil {
		return nil, nil, err
	}

	if err := e.gate.RequireWrite(ctx, actor, t.ChallengeID); err != nil {
		return nil, nil, err
	}

	holder, err := e.locks.HolderTx(tx, lock.TaskItem(taskID))
	if err != nil {
		return nil, nil, err
	}
	if holder != nil && holder.UserID != actor.ID {
		return nil, nil, formatHeldByOtherError(taskID, holder.UserID)
	}

	if t.Status == newStatus {
		// No-op success, except that a completed task resubmitted with a
		// review request re-opens its review cycle. This is how a rejected
		// contribution re-enters the review queue after rework.
		if opts.RequestReview && newStatus.IsCompletion() {
			requested, err := e.refreshReview(tx, actor, t, true)
			if err != nil {
				return nil, nil, err
			}
			if requested {
				event := notify.NewEvent(notify.EventReviewRequested, t.ID, t.ChallengeID, actor.ID)
				event.Status = string(ReviewRequested)
				return t, []notify.Event{event}, nil
			}
		}
		return t, nil, nil
	}
	if !CanTransition(t.Status, newStatus) {
		return nil, nil, formatInvalidTransitionError(t.Status, newStatus)
	}

	now := e.Now()
	previous := t.Status
	t.Status = newStatus

	if newStatus.IsCompletion() && isWorkable(previous) {
		t.CompletedBy = &actor.ID
		t.CompletedTimeSpent = opts.TimeSpent
		t.MappedOn = &now
	}
	if newStatus == StatusCreated {
		// Deleted -> Created re-circulates the task as fresh work.
		t.CompletedBy = nil
		t.CompletedTimeSpent = nil
		t.MappedOn = nil
	}
	if opts.BundleID != nil {
		// A task belongs to at most one active bundle. The first
		// finalizing bundle stamps it; any overlapping proposal that
		// finalizes later loses here.
		if t.BundleID != nil && *t.BundleID != *opts.BundleID {
			return nil, nil, formatAlreadyBundledError(t.ID, *t.BundleID, *opts.BundleID)
		}
		t.BundleID = opts.BundleID
		t.IsBundlePrimary = opts.BundlePrimary
	}

	if err := e.store.SaveTaskTx(tx, t); err != nil {
		return nil, nil, err
	}

	if newStatus == StatusDeleted {
		if err := e.locks.ReleaseAllTx(tx, lock.TaskItem(taskID)); err != nil {
			return nil, nil, err
		}
	} else {
		if err := e.locks.ReleaseTx(tx, actor.ID, lock.TaskItem(taskID)); err != nil {
			return nil, nil, err
		}
	}

	var pending []notify.Event
	if newStatus.IsCompletion() {
		event := notify.NewEvent(notify.EventTaskCompleted, t.ID, t.ChallengeID, actor.ID)
		event.Status = string(newStatus)
		event.Tags = opts.Tags
		pending = append(pending, event)

		requested, err := e.refreshReview(tx, actor, t, opts.RequestReview)
		if err != nil {
			return nil, nil, err
		}
		if requested {
			reviewEvent := notify.NewEvent(notify.EventReviewRequested, t.ID, t.ChallengeID, actor.ID)
			reviewEvent.Status = string(ReviewRequested)
			pending = append(pending, reviewEvent)
		}
	}

	return t, pending, nil
}

// refreshReview creates or re-opens the task's review record when the
// contributor asked for review or the challenge policy requires one. The
// challenge row is read inside the transaction: cached policy values
// never gate this write.
func (e *Engine) refreshReview(tx *gorm.DB, actor user.User, t *Task, requested bool) (bool, error) {
	if !requested {
		challenge, err := e.store.GetChallengeTx(tx, t.ChallengeID)
		if err != nil {
			return false, err
		}
		if !challenge.RequiresReview {
			return false, nil
		}
	}

	review, err := e.store.GetReviewTx(tx, t.ID, true)
	if err != nil {
		return false, err
	}
	if review == nil {
		review = &TaskReview{TaskID: t.ID}
	}

	// A new cycle supersedes the previous one in place; completed-cycle
	// history (ReviewedBy, AdditionalReviewers) is preserved.
	review.ReviewStatus = ReviewRequested
	review.ReviewRequestedBy = &actor.ID
	review.ReviewClaimedBy = nil
	review.ReviewClaimedAt = nil
	review.ReviewStartedAt = nil

	if err := e.store.SaveReviewTx(tx, review); err != nil {
		return false, err
	}
	return true, nil
}

func isWorkable(s Status) bool {
	switch s {
	case StatusCreated, StatusSkipped, StatusTooHard:
		return true
	default:
		return false
	}
}
