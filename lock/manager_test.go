package lock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amonks/mapmend/internal/db"
)

func openTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "mapmend.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	database := db.Wrap(conn, db.DriverSQLite)
	if err := database.AutoMigrate(&Lock{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewManager(database, ttl)
}

func TestManager_Acquire(t *testing.T) {
	manager := openTestManager(t, time.Hour)
	ctx := context.Background()

	acquired, err := manager.Acquire(ctx, 7, TaskItem(1))
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if acquired.UserID != 7 {
		t.Errorf("expected holder 7, got %d", acquired.UserID)
	}

	locked, err := manager.IsLocked(ctx, TaskItem(1))
	if err != nil {
		t.Fatalf("failed to check lock: %v", err)
	}
	if !locked {
		t.Error("expected item to be locked")
	}
}

func TestManager_Acquire_Conflict(t *testing.T) {
	manager := openTestManager(t, time.Hour)
	ctx := context.Background()

	if _, err := manager.Acquire(ctx, 7, TaskItem(1)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	_, err := manager.Acquire(ctx, 42, TaskItem(1))
	if !errors.Is(err, ErrLockConflict) {
		t.Fatalf("expected ErrLockConflict, got %v", err)
	}
}

func TestManager_Acquire_RefreshesOwnLock(t *testing.T) {
	manager := openTestManager(t, time.Hour)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	manager.Now = func() time.Time { return first }
	if _, err := manager.Acquire(ctx, 7, TaskItem(1)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	later := first.Add(30 * time.Minute)
	manager.Now = func() time.Time { return later }
	refreshed, err := manager.Acquire(ctx, 7, TaskItem(1))
	if err != nil {
		t.Fatalf("failed to refresh lock: %v", err)
	}
	if !refreshed.LockedTime.Equal(later) {
		t.Errorf("expected locked_time %v, got %v", later, refreshed.LockedTime)
	}
}

func TestManager_Acquire_ExpiredLockIsReplaced(t *testing.T) {
	manager := openTestManager(t, time.Hour)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	manager.Now = func() time.Time { return start }
	if _, err := manager.Acquire(ctx, 7, TaskItem(1)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// Past the TTL, another user takes over without a conflict.
	manager.Now = func() time.Time { return start.Add(2 * time.Hour) }
	acquired, err := manager.Acquire(ctx, 42, TaskItem(1))
	if err != nil {
		t.Fatalf("expected expired lock to be replaced, got %v", err)
	}
	if acquired.UserID != 42 {
		t.Errorf("expected new holder 42, got %d", acquired.UserID)
	}
}

func TestManager_Release(t *testing.T) {
	manager := openTestManager(t, time.Hour)
	ctx := context.Background()

	if _, err := manager.Acquire(ctx, 7, TaskItem(1)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if err := manager.Release(ctx, 7, TaskItem(1)); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}

	locked, err := manager.IsLocked(ctx, TaskItem(1))
	if err != nil {
		t.Fatalf("failed to check lock: %v", err)
	}
	if locked {
		t.Error("expected item to be unlocked after release")
	}
}

func TestManager_Release_NonHolderIsNoOp(t *testing.T) {
	manager := openTestManager(t, time.Hour)
	ctx := context.Background()

	if _, err := manager.Acquire(ctx, 7, TaskItem(1)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// Another user's release must not error and must not remove the lock.
	if err := manager.Release(ctx, 42, TaskItem(1)); err != nil {
		t.Fatalf("expected no-op release, got %v", err)
	}

	locked, err := manager.IsLocked(ctx, TaskItem(1))
	if err != nil {
		t.Fatalf("failed to check lock: %v", err)
	}
	if !locked {
		t.Error("expected lock to survive a non-holder release")
	}
}

func TestManager_Acquire_InvalidItemType(t *testing.T) {
	manager := openTestManager(t, time.Hour)

	_, err := manager.Acquire(context.Background(), 7, Item{Type: ItemType("project"), ID: 1})
	if !errors.Is(err, ErrInvalidItemType) {
		t.Fatalf("expected ErrInvalidItemType, got %v", err)
	}
}

func TestManager_SeparateItemTypesDoNotCollide(t *testing.T) {
	manager := openTestManager(t, time.Hour)
	ctx := context.Background()

	if _, err := manager.Acquire(ctx, 7, TaskItem(1)); err != nil {
		t.Fatalf("failed to acquire task lock: %v", err)
	}
	if _, err := manager.Acquire(ctx, 42, ChallengeItem(1)); err != nil {
		t.Fatalf("expected challenge lock on same id to succeed, got %v", err)
	}
}

func TestLock_ExpiresAt(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := Lock{LockedTime: at}
	if got := l.ExpiresAt(time.Hour); !got.Equal(at.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", at.Add(time.Hour), got)
	}
}
