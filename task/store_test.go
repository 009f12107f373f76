package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amonks/mapmend/internal/cache"
	"github.com/amonks/mapmend/internal/db"
	"github.com/amonks/mapmend/lock"
)

func TestStore_CreateTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	challenge := seedChallenge(t, store, false)

	created := &Task{ChallengeID: challenge.ID, Name: "missing sidewalk"}
	if err := store.CreateTask(ctx, created); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected a task id to be assigned")
	}
	if created.Status != StatusCreated {
		t.Errorf("expected default status created, got %s", created.Status)
	}
}

func TestStore_CreateTask_ChallengeNotFound(t *testing.T) {
	store := openTestStore(t)

	err := store.CreateTask(context.Background(), &Task{ChallengeID: 999, Name: "orphan"})
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestStore_CreateTask_InvalidStatus(t *testing.T) {
	store := openTestStore(t)
	challenge := seedChallenge(t, store, false)

	err := store.CreateTask(context.Background(), &Task{ChallengeID: challenge.ID, Status: Status("bogus")})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestStore_GetTask_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetTask(context.Background(), 999)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestStore_ListTasks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	first := seedChallenge(t, store, false)
	second := seedChallenge(t, store, false)

	a := seedTask(t, store, first.ID)
	seedTaskWithStatus(t, store, first.ID, StatusFixed)
	seedTask(t, store, second.ID)

	tasks, err := store.ListTasks(ctx, ListFilter{ChallengeID: &first.ID})
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks in challenge, got %d", len(tasks))
	}

	status := StatusCreated
	tasks, err = store.ListTasks(ctx, ListFilter{ChallengeID: &first.ID, Status: &status})
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != a.ID {
		t.Fatalf("expected only task %d, got %+v", a.ID, tasks)
	}

	tasks, err = store.ListTasks(ctx, ListFilter{Limit: 1})
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected limit of 1 task, got %d", len(tasks))
	}
}

func TestStore_ListTasks_ExcludesOtherUsersLocks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	challenge := seedChallenge(t, store, false)
	locks := lock.NewManager(store.DB(), time.Hour)

	free := seedTask(t, store, challenge.ID)
	mine := seedTask(t, store, challenge.ID)
	theirs := seedTask(t, store, challenge.ID)

	viewer := int64(7)
	if _, err := locks.Acquire(ctx, viewer, lock.TaskItem(mine.ID)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	if _, err := locks.Acquire(ctx, 42, lock.TaskItem(theirs.ID)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	tasks, err := store.ListTasks(ctx, ListFilter{ExcludeLockedFor: &viewer})
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	for _, got := range tasks {
		if got.ID != free.ID && got.ID != mine.ID {
			t.Errorf("expected task %d to be excluded, got it in results", got.ID)
		}
	}
}

func TestStore_ListTasks_IgnoresExpiredLocks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	challenge := seedChallenge(t, store, false)
	locks := lock.NewManager(store.DB(), time.Hour)

	stale := seedTask(t, store, challenge.ID)
	locks.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	if _, err := locks.Acquire(ctx, 42, lock.TaskItem(stale.ID)); err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	viewer := int64(7)
	tasks, err := store.ListTasks(ctx, ListFilter{ExcludeLockedFor: &viewer})
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected expired lock to be ignored, got %d tasks", len(tasks))
	}
}

func TestStore_GetChallenge_CachesReads(t *testing.T) {
	dir := t.TempDir()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(dir, "mapmend.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	challenges := cache.New[int64, Challenge](16, time.Minute)
	store := NewStore(db.Wrap(conn, db.DriverSQLite), time.Hour, challenges)
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	ctx := context.Background()
	challenge := seedChallenge(t, store, false)

	if _, err := store.GetChallenge(ctx, challenge.ID); err != nil {
		t.Fatalf("failed to get challenge: %v", err)
	}

	// Mutate the row behind the cache, then confirm the cached value is
	// served until invalidated.
	err = store.DB().InTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Challenge{}).Where("id = ?", challenge.ID).Update("requires_review", true).Error
	})
	if err != nil {
		t.Fatalf("failed to update challenge: %v", err)
	}

	cached, err := store.GetChallenge(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to get challenge: %v", err)
	}
	if cached.RequiresReview {
		t.Error("expected stale cached read before invalidation")
	}

	store.InvalidateChallenge(challenge.ID)
	fresh, err := store.GetChallenge(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to get challenge: %v", err)
	}
	if !fresh.RequiresReview {
		t.Error("expected fresh read after invalidation")
	}
}

func TestStore_GetChallenge_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetChallenge(context.Background(), 999)
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}
