package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amonks/mapmend/internal/db"
	"github.com/amonks/mapmend/internal/notify"
	"github.com/amonks/mapmend/lock"
	"github.com/amonks/mapmend/user"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "mapmend.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	store := NewStore(db.Wrap(conn, db.DriverSQLite), time.Hour, nil)
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func seedChallenge(t *testing.T, store *Store, requiresReview bool) *Challenge {
	t.Helper()

	challenge := &Challenge{Name: "fix crossings", OwnerID: 1, RequiresReview: requiresReview}
	if err := store.CreateChallenge(context.Background(), challenge); err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}
	return challenge
}

func seedTask(t *testing.T, store *Store, challengeID int64) *Task {
	t.Helper()

	created := &Task{ChallengeID: challengeID, Name: "missing crossing"}
	if err := store.CreateTask(context.Background(), created); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return created
}

func seedTaskWithStatus(t *testing.T, store *Store, challengeID int64, status Status) *Task {
	t.Helper()

	created := seedTask(t, store, challengeID)
	err := store.DB().InTransaction(context.Background(), func(tx *gorm.DB) error {
		return tx.Model(&Task{}).Where("id = ?", created.ID).Update("status", status).Error
	})
	if err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
	created.Status = status
	return created
}

func newTestEngine(t *testing.T) (*Engine, *Store, *lock.Manager, *notify.Recorder) {
	t.Helper()

	store := openTestStore(t)
	locks := lock.NewManager(store.DB(), time.Hour)
	recorder := &notify.Recorder{}
	engine := NewEngine(store, locks, user.OpenGate{}, recorder)
	return engine, store, locks, recorder
}
