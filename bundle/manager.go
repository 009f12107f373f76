package bundle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amonks/mapmend/internal/cache"
	"github.com/amonks/mapmend/internal/notify"
	"github.com/amonks/mapmend/review"
	"github.com/amonks/mapmend/task"
	"github.com/amonks/mapmend/user"
)

// Manager creates, inspects, and cascades operations across bundles.
type Manager struct {
	store      *task.Store
	engine     *task.Engine
	reviews    *review.Workflow
	gate       user.PermissionGate
	dispatcher notify.Dispatcher

	// bundles fronts GetBundle reads only. May be nil. Mutations
	// invalidate it and never consult it.
	bundles *cache.Cache[int64, Bundle]
}

// NewManager builds a bundle manager. bundleCache may be nil to disable
// read caching.
func NewManager(store *task.Store, engine *task.Engine, reviews *review.Workflow, gate user.PermissionGate, dispatcher notify.Dispatcher, bundleCache *cache.Cache[int64, Bundle]) *Manager {
	if dispatcher == nil {
		dispatcher = notify.Noop{}
	}
	return &Manager{
		store:      store,
		engine:     engine,
		reviews:    reviews,
		gate:       gate,
		dispatcher: dispatcher,
		bundles:    bundleCache,
	}
}

// Migrate creates or updates the bundle schema.
func (m *Manager) Migrate() error {
	return m.store.DB().AutoMigrate(&Bundle{}, &Member{})
}

// CreateBundle records a proposed grouping of tasks. Member tasks are
// validated but not stamped: stamping happens when a status transition
// finalizes the group. Fails with ErrInvalidBundle for an empty list,
// members spanning challenges, members already stamped into a bundle, or
// members carrying cooperative work.
func (m *Manager) CreateBundle(ctx context.Context, actor user.User, name string, taskIDs []int64) (*Bundle, error) {
	if len(taskIDs) == 0 {
		return nil, formatEmptyBundleError()
	}

	var created *Bundle
	err := m.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		var challengeID int64
		for i, id := range taskIDs {
			t, err := m.store.GetTaskTx(tx, id, false)
			if err != nil {
				return err
			}
			if i == 0 {
				challengeID = t.ChallengeID
				if err := m.gate.RequireWrite(ctx, actor, challengeID); err != nil {
					return err
				}
			} else if t.ChallengeID != challengeID {
				return formatCrossChallengeError(id, t.ChallengeID, challengeID)
			}
			if t.BundleID != nil {
				return formatAlreadyBundledError(id, *t.BundleID)
			}
			if t.CooperativeWork != "" {
				return formatCooperativeError(id)
			}
		}

		b := Bundle{
			Name:          name,
			OwnerID:       actor.ID,
			ChallengeID:   challengeID,
			PrimaryTaskID: taskIDs[0],
			CreatedAt:     time.Now(),
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}

		members := make([]Member, 0, len(taskIDs))
		for i, id := range taskIDs {
			members = append(members, Member{BundleID: b.ID, TaskID: id, Position: i})
		}
		if err := tx.Create(&members).Error; err != nil {
			return err
		}

		b.TaskIDs = append([]int64(nil), taskIDs...)
		created = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetBundle returns the bundle with its member task ids. The actor needs
// read access to the owning challenge.
func (m *Manager) GetBundle(ctx context.Context, actor user.User, bundleID int64) (*Bundle, error) {
	if m.bundles != nil {
		if cached, ok := m.bundles.Get(bundleID); ok {
			if err := m.gate.RequireRead(ctx, actor, cached.ChallengeID); err != nil {
				return nil, err
			}
			return &cached, nil
		}
	}

	var b Bundle
	err := m.store.DB().Gorm().WithContext(ctx).First(&b, bundleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrBundleNotFound, bundleID)
	}
	if err != nil {
		return nil, err
	}

	if err := m.gate.RequireRead(ctx, actor, b.ChallengeID); err != nil {
		return nil, err
	}

	b.TaskIDs, err = m.memberIDs(m.store.DB().Gorm().WithContext(ctx), bundleID)
	if err != nil {
		return nil, err
	}

	if m.bundles != nil {
		m.bundles.Put(bundleID, b)
	}
	return &b, nil
}

// DeleteBundle removes the grouping record. Member tasks keep any bundle
// stamps a finalization already applied. Only the creator or a super user
// may delete.
func (m *Manager) DeleteBundle(ctx context.Context, actor user.User, bundleID int64) error {
	err := m.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		b, err := m.getBundleTx(tx, bundleID)
		if err != nil {
			return err
		}
		if err := m.requireOwner(actor, b); err != nil {
			return err
		}
		return m.deleteBundleTx(tx, bundleID)
	})
	if err != nil {
		return err
	}
	m.invalidate(bundleID)
	return nil
}

// UnbundleTasks removes the listed tasks from the bundle's membership and
// clears their bundle stamps. A bundle left with fewer than two members
// is destroyed.
func (m *Manager) UnbundleTasks(ctx context.Context, actor user.User, bundleID int64, taskIDs []int64) error {
	err := m.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		b, err := m.getBundleTx(tx, bundleID)
		if err != nil {
			return err
		}
		if err := m.requireOwner(actor, b); err != nil {
			return err
		}

		if err := tx.
			Where("bundle_id = ? AND task_id IN ?", bundleID, taskIDs).
			Delete(&Member{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&task.Task{}).
			Where("id IN ? AND bundle_id = ?", taskIDs, bundleID).
			Updates(map[string]any{
				"bundle_id":         nil,
				"is_bundle_primary": false,
			}).Error; err != nil {
			return err
		}

		remaining, err := m.memberIDs(tx, bundleID)
		if err != nil {
			return err
		}
		if len(remaining) <= 1 {
			return m.deleteBundleTx(tx, bundleID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.invalidate(bundleID)
	return nil
}

// SetBundleStatus applies one status transition to every member of the
// bundle in a single transaction, stamping each member with the bundle id
// and marking the primary. A failure on any member rolls back the whole
// cascade.
func (m *Manager) SetBundleStatus(ctx context.Context, actor user.User, bundleID int64, newStatus task.Status, opts task.SetStatusOptions) ([]task.Task, error) {
	var (
		updated []task.Task
		pending []notify.Event
	)
	err := m.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		b, err := m.getBundleTx(tx, bundleID)
		if err != nil {
			return err
		}
		memberIDs, err := m.memberIDs(tx, bundleID)
		if err != nil {
			return err
		}

		opts.BundleID = &bundleID
		for _, taskID := range orderPrimaryFirst(memberIDs, b.PrimaryTaskID) {
			memberOpts := opts
			memberOpts.BundlePrimary = taskID == b.PrimaryTaskID
			t, events, err := m.engine.ApplyTx(ctx, tx, actor, taskID, newStatus, memberOpts)
			if err != nil {
				return err
			}
			updated = append(updated, *t)
			pending = append(pending, events...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.invalidate(bundleID)
	for _, event := range pending {
		m.dispatcher.Dispatch(event)
	}
	return updated, nil
}

// StartBundleReview claims the review of every member for the reviewer in
// one transaction, so the bundle gets a single active reviewer.
func (m *Manager) StartBundleReview(ctx context.Context, reviewer user.User, bundleID int64) ([]task.TaskReview, error) {
	return m.cascadeReviews(ctx, bundleID, func(tx *gorm.DB, taskID int64) (*task.TaskReview, []notify.Event, error) {
		return m.reviews.ApplyStartTx(ctx, tx, reviewer, taskID)
	})
}

// SetBundleReviewStatus records the same review decision on every member
// in one transaction.
func (m *Manager) SetBundleReviewStatus(ctx context.Context, reviewer user.User, bundleID int64, newStatus task.ReviewStatus, comment string) ([]task.TaskReview, error) {
	return m.cascadeReviews(ctx, bundleID, func(tx *gorm.DB, taskID int64) (*task.TaskReview, []notify.Event, error) {
		return m.reviews.ApplyStatusTx(ctx, tx, reviewer, taskID, newStatus, comment)
	})
}

func (m *Manager) cascadeReviews(ctx context.Context, bundleID int64, apply func(tx *gorm.DB, taskID int64) (*task.TaskReview, []notify.Event, error)) ([]task.TaskReview, error) {
	var (
		updated []task.TaskReview
		pending []notify.Event
	)
	err := m.store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		b, err := m.getBundleTx(tx, bundleID)
		if err != nil {
			return err
		}
		memberIDs, err := m.memberIDs(tx, bundleID)
		if err != nil {
			return err
		}
		for _, taskID := range orderPrimaryFirst(memberIDs, b.PrimaryTaskID) {
			r, events, err := apply(tx, taskID)
			if err != nil {
				return err
			}
			updated = append(updated, *r)
			pending = append(pending, events...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range pending {
		m.dispatcher.Dispatch(event)
	}
	return updated, nil
}

func (m *Manager) getBundleTx(tx *gorm.DB, bundleID int64) (*Bundle, error) {
	var b Bundle
	err := m.store.DB().ForUpdate(tx).First(&b, bundleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrBundleNotFound, bundleID)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (m *Manager) deleteBundleTx(tx *gorm.DB, bundleID int64) error {
	if err := tx.Where("bundle_id = ?", bundleID).Delete(&Member{}).Error; err != nil {
		return err
	}
	return tx.Delete(&Bundle{}, bundleID).Error
}

func (m *Manager) memberIDs(tx *gorm.DB, bundleID int64) ([]int64, error) {
	var ids []int64
	err := tx.Model(&Member{}).
		Where("bundle_id = ?", bundleID).
		Order("position").
		Pluck("task_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (m *Manager) requireOwner(actor user.User, b *Bundle) error {
	if actor.SuperUser || actor.ID == b.OwnerID {
		return nil
	}
	return formatNotOwnerError(b.ID, actor.ID)
}

func (m *Manager) invalidate(bundleID int64) {
	if m.bundles != nil {
		m.bundles.Invalidate(bundleID)
	}
}

func orderPrimaryFirst(ids []int64, primary int64) []int64 {
	ordered := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == primary {
			ordered = append(ordered, id)
		}
	}
	for _, id := range ids {
		if id != primary {
			ordered = append(ordered, id)
		}
	}
	return ordered
}
