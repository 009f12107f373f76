package lock

import (
	"errors"
	"fmt"

	"github.com/amonks/mapmend/internal/validation"
)

var (
	// ErrLockConflict indicates another user holds an unexpired lock.
	ErrLockConflict = errors.New("lock conflict")
	// ErrInvalidItemType indicates an unrecognized item type.
	ErrInvalidItemType = errors.New("invalid item type")
)

func formatConflictError(item Item, holderID int64) error {
	return fmt.Errorf("%w: %s %d is locked by user %d", ErrLockConflict, item.Type, item.ID, holderID)
}

func formatInvalidItemTypeError(itemType ItemType) error {
	return validation.FormatInvalidValueError(ErrInvalidItemType, itemType, ValidItemTypes())
}
