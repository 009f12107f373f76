package review

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/amonks/mapmend/internal/validation"
	"github.com/amonks/mapmend/task"
	"github.com/amonks/mapmend/user"
)

// NextTaskReview returns the next task awaiting this reviewer, or nil
// when no eligible task remains (which is success, not an error).
//
// Candidate filtering delegates to the Searcher collaborator; the
// review-specific exclusions apply here: non-primary bundle members,
// tasks claimed by a different reviewer, and the reviewer's own requested
// tasks (unless super user). Tasks the reviewer may not read are skipped.
// lastTaskID is a cursor; repeated calls walk the queue in a stable order
// without returning the same task twice.
func (w *Workflow) NextTaskReview(ctx context.Context, reviewer user.User, criteria Criteria, lastTaskID *int64, order Order) (*task.Task, error) {
	if order == "" {
		order = OrderAsc
	}
	if !order.IsValid() {
		return nil, validation.FormatInvalidValueError(ErrInvalidOrder, order, ValidOrders())
	}

	var candidates []int64
	if w.searcher != nil {
		ids, err := w.searcher.FilterTasks(ctx, criteria)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		candidates = ids
	}

	cursor := lastTaskID
	for {
		query := w.store.DB().Gorm().WithContext(ctx).Model(&task.Task{}).
			Joins("JOIN task_review ON task_review.task_id = tasks.id").
			Where("task_review.review_status = ?", task.ReviewRequested).
			Where("tasks.bundle_id IS NULL OR tasks.is_bundle_primary = ?", true).
			Where("task_review.review_claimed_by IS NULL OR task_review.review_claimed_by = ?", reviewer.ID)

		if !reviewer.SuperUser {
			query = query.Where("task_review.review_requested_by IS NULL OR task_review.review_requested_by <> ?", reviewer.ID)
		}
		if candidates != nil {
			query = query.Where("tasks.id IN ?", candidates)
		}

		if cursor != nil {
			if order == OrderAsc {
				query = query.Where("tasks.id > ?", *cursor)
			} else {
				query = query.Where("tasks.id < ?", *cursor)
			}
		}

		if order == OrderAsc {
			query = query.Order("tasks.id ASC")
		} else {
			query = query.Order("tasks.id DESC")
		}

		var next task.Task
		err := query.First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		// A task the reviewer may not read does not wedge the queue;
		// the walk continues past it.
		if err := w.gate.RequireRead(ctx, reviewer, next.ChallengeID); err != nil {
			if errors.Is(err, user.ErrPermissionDenied) {
				id := next.ID
				cursor = &id
				continue
			}
			return nil, err
		}
		return &next, nil
	}
}
