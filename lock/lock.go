// Package lock implements advisory-exclusive edit locks on work items.
//
// A lock is an ephemeral claim: held by exactly one user, refreshed
// idempotently by its holder, and bounded by a TTL so abandoned sessions
// recover without a background sweep. Expiry is checked lazily whenever a
// lock is read; an expired row is deleted on sight.
//
// Only the lock holder may transition a task's status or claim its
// review. Other users' write attempts fail with ErrLockConflict.
package lock

import "time"

// ItemType identifies the kind of item a lock protects. The set is
// closed; callers resolve the variant once at the boundary.
type ItemType string

const (
	// ItemTask locks a single task for editing.
	ItemTask ItemType = "task"

	// ItemChallenge locks a challenge.
	ItemChallenge ItemType = "challenge"

	// ItemVirtualChallenge locks a virtual challenge.
	ItemVirtualChallenge ItemType = "virtual_challenge"
)

// ValidItemTypes returns all valid item type values.
func ValidItemTypes() []ItemType {
	return []ItemType{ItemTask, ItemChallenge, ItemVirtualChallenge}
}

// IsValid returns true if the item type is a known valid value.
func (t ItemType) IsValid() bool {
	for _, valid := range ValidItemTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Item names a lockable item.
type Item struct {
	// Type is the kind of item.
	Type ItemType

	// ID is the item's id within its type.
	ID int64
}

// TaskItem returns the Item for a task id.
func TaskItem(id int64) Item {
	return Item{Type: ItemTask, ID: id}
}

// ChallengeItem returns the Item for a challenge id.
func ChallengeItem(id int64) Item {
	return Item{Type: ItemChallenge, ID: id}
}

// Lock records one user's exclusive claim on an item.
type Lock struct {
	// ItemType is the kind of locked item.
	ItemType ItemType `gorm:"primaryKey;column:item_type"`

	// ItemID is the locked item's id.
	ItemID int64 `gorm:"primaryKey;column:item_id"`

	// UserID is the holder.
	UserID int64 `gorm:"column:user_id"`

	// LockedTime is when the lock was acquired or last refreshed.
	LockedTime time.Time `gorm:"column:locked_time"`
}

// TableName names the locks table.
func (Lock) TableName() string {
	return "locks"
}

// ExpiresAt returns when the lock lapses under the given TTL.
func (l Lock) ExpiresAt(ttl time.Duration) time.Time {
	return l.LockedTime.Add(ttl)
}
