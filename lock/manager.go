package lock

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/amonks/mapmend/internal/db"
)

// Manager grants, refreshes, and releases item locks.
type Manager struct {
	db  *db.DB
	ttl time.Duration

	// Now returns the current time. Overridable in tests.
	Now func() time.Time
}

// NewManager builds a manager whose locks expire after ttl.
func NewManager(database *db.DB, ttl time.Duration) *Manager {
	return &Manager{
		db:  database,
		ttl: ttl,
		Now: time.Now,
	}
}

// TTL returns the configured lock lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Acquire grants the actor an exclusive lock on item, or fails with
// ErrLockConflict if another user holds an unexpired lock. Re-acquiring
// an item the actor already holds refreshes the TTL.
func (m *Manager) Acquire(ctx context.Context, userID int64, item Item) (*Lock, error) {
	var acquired *Lock
	err := m.db.InTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		acquired, err = m.AcquireTx(tx, userID, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acquired, nil
}

// AcquireTx is Acquire within an existing transaction.
func (m *Manager) AcquireTx(tx *gorm.DB, userID int64, item Item) (*Lock, error) {
	if !item.Type.IsValid() {
		return nil, formatInvalidItemTypeError(item.Type)
	}

	holder, err := m.HolderTx(tx, item)
	if err != nil {
		return nil, err
	}

	now := m.Now()
	if holder != nil {
		if holder.UserID != userID {
			return nil, formatConflictError(item, holder.UserID)
		}
		holder.LockedTime = now
		if err := tx.Model(&Lock{}).
			Where("item_type = ? AND item_id = ?", item.Type, item.ID).
			Update("locked_time", now).Error; err != nil {
			return nil, err
		}
		return holder, nil
	}

	created := Lock{
		ItemType:   item.Type,
		ItemID:     item.ID,
		UserID:     userID,
		LockedTime: now,
	}
	if err := tx.Create(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

// Release removes the actor's lock on item. Releasing a lock the actor
// does not hold is a no-op, not an error.
func (m *Manager) Release(ctx context.Context, userID int64, item Item) error {
	return m.db.InTransaction(ctx, func(tx *gorm.DB) error {
		return m.ReleaseTx(tx, userID, item)
	})
}

// ReleaseTx is Release within an existing transaction.
func (m *Manager) ReleaseTx(tx *gorm.DB, userID int64, item Item) error {
	if !item.Type.IsValid() {
		return formatInvalidItemTypeError(item.Type)
	}
	return tx.
		Where("item_type = ? AND item_id = ? AND user_id = ?", item.Type, item.ID, userID).
		Delete(&Lock{}).Error
}

// ReleaseAllTx removes every lock on item regardless of holder. Used when
// the item itself is deleted.
func (m *Manager) ReleaseAllTx(tx *gorm.DB, item Item) error {
	return tx.
		Where("item_type = ? AND item_id = ?", item.Type, item.ID).
		Delete(&Lock{}).Error
}

// IsLocked reports whether an unexpired lock exists on item.
func (m *Manager) IsLocked(ctx context.Context, item Item) (bool, error) {
	var locked bool
	err := m.db.InTransaction(ctx, func(tx *gorm.DB) error {
		holder, err := m.HolderTx(tx, item)
		if err != nil {
			return err
		}
		locked = holder != nil
		return nil
	})
	return locked, err
}

// HolderTx returns the current unexpired lock on item, or nil when the
// item is unlocked. Expired locks are deleted on sight.
func (m *Manager) HolderTx(tx *gorm.DB, item Item) (*Lock, error) {
	var existing Lock
	err := m.db.ForUpdate(tx).
		Where("item_type = ? AND item_id = ?", item.Type, item.ID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if m.ttl > 0 && m.Now().After(existing.ExpiresAt(m.ttl)) {
		if err := tx.
			Where("item_type = ? AND item_id = ?", item.Type, item.ID).
			Delete(&Lock{}).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &existing, nil
}
