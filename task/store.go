package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amonks/mapmend/internal/cache"
	"github.com/amonks/mapmend/internal/db"
	"github.com/amonks/mapmend/internal/validation"
	"github.com/amonks/mapmend/lock"
)

// Store is the durable record of tasks, challenges, and review rows. It
// is the single source of truth; every decision that gates a write reads
// through it inside the mutating transaction.
type Store struct {
	db      *db.DB
	lockTTL time.Duration

	// challenges fronts challenge reads on listing paths only. May be
	// nil. Mutating paths never consult it.
	challenges *cache.Cache[int64, Challenge]
}

// NewStore builds a store. lockTTL is used to treat expired locks as
// absent when excluding locked tasks from listings. challengeCache may be
// nil to disable read caching.
func NewStore(database *db.DB, lockTTL time.Duration, challengeCache *cache.Cache[int64, Challenge]) *Store {
	return &Store{
		db:         database,
		lockTTL:    lockTTL,
		challenges: challengeCache,
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *db.DB {
	return s.db
}

// Migrate creates or updates the core schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Challenge{}, &Task{}, &TaskReview{}, &lock.Lock{})
}

// CreateChallenge inserts a challenge row.
func (s *Store) CreateChallenge(ctx context.Context, challenge *Challenge) error {
	return s.db.InTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(challenge).Error
	})
}

// CreateTask inserts a task row, defaulting status to StatusCreated.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.Status == "" {
		t.Status = StatusCreated
	}
	if !t.Status.IsValid() {
		return validation.FormatInvalidValueError(ErrInvalidStatus, t.Status, ValidStatuses())
	}
	return s.db.InTransaction(ctx, func(tx *gorm.DB) error {
		if err := challengeExists(tx, t.ChallengeID); err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// GetTask returns the task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.db.Gorm().WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTaskTx loads the task inside tx, taking the row lock when forUpdate
// is set.
func (s *Store) GetTaskTx(tx *gorm.DB, id int64, forUpdate bool) (*Task, error) {
	query := tx
	if forUpdate {
		query = s.db.ForUpdate(tx)
	}
	var t Task
	err := query.First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTaskTx writes the full task row inside tx.
func (s *Store) SaveTaskTx(tx *gorm.DB, t *Task) error {
	t.UpdatedAt = time.Now()
	return tx.Save(t).Error
}

// GetChallenge returns the challenge by id, reading through the cache
// when one is configured. Suitable for listing paths only.
func (s *Store) GetChallenge(ctx context.Context, id int64) (*Challenge, error) {
	if s.challenges != nil {
		if cached, ok := s.challenges.Get(id); ok {
			return &cached, nil
		}
	}

	var challenge Challenge
	err := s.db.Gorm().WithContext(ctx).First(&challenge, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrChallengeNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if s.challenges != nil {
		s.challenges.Put(id, challenge)
	}
	return &challenge, nil
}

// GetChallengeTx loads the challenge inside tx, bypassing the cache.
// Write-gating decisions must use this form.
func (s *Store) GetChallengeTx(tx *gorm.DB, id int64) (*Challenge, error) {
	var challenge Challenge
	err := tx.First(&challenge, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrChallengeNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// InvalidateChallenge drops the cached challenge, if cached.
func (s *Store) InvalidateChallenge(id int64) {
	if s.challenges != nil {
		s.challenges.Invalidate(id)
	}
}

// GetReviewTx loads the task's review record inside tx, or nil when the
// task has never required review.
func (s *Store) GetReviewTx(tx *gorm.DB, taskID int64, forUpdate bool) (*TaskReview, error) {
	query := tx
	if forUpdate {
		query = s.db.ForUpdate(tx)
	}
	var review TaskReview
	err := query.Where("task_id = ?", taskID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// SaveReviewTx upserts the review record inside tx.
func (s *Store) SaveReviewTx(tx *gorm.DB, review *TaskReview) error {
	return tx.Save(review).Error
}

// ListFilter configures which tasks ListTasks returns.
type ListFilter struct {
	// ChallengeID filters to one challenge.
	ChallengeID *int64

	// Status filters by exact status match.
	Status *Status

	// ExcludeLockedFor excludes tasks whose unexpired edit lock is held
	// by a different user, so work queues skip tasks already being
	// edited.
	ExcludeLockedFor *int64

	// Limit bounds the result count. Zero means no bound.
	Limit int
}

// ListTasks returns tasks matching the filter, ordered by id.
func (s *Store) ListTasks(ctx context.Context, filter ListFilter) ([]Task, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, validation.FormatInvalidValueError(ErrInvalidStatus, *filter.Status, ValidStatuses())
	}

	query := s.db.Gorm().WithContext(ctx).Model(&Task{}).Order("id")
	if filter.ChallengeID != nil {
		query = query.Where("parent_id = ?", *filter.ChallengeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ExcludeLockedFor != nil {
		lockedIDs := s.db.Gorm().Model(&lock.Lock{}).
			Select("item_id").
			Where("item_type = ? AND user_id <> ?", lock.ItemTask, *filter.ExcludeLockedFor)
		if s.lockTTL > 0 {
			lockedIDs = lockedIDs.Where("locked_time > ?", time.Now().Add(-s.lockTTL))
		}
		query = query.Where("id NOT IN (?)", lockedIDs)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var tasks []Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func challengeExists(tx *gorm.DB, id int64) error {
	var count int64
	if err := tx.Model(&Challenge{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %d", ErrChallengeNotFound, id)
	}
	return nil
}
