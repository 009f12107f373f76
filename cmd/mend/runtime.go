package main

import (
	"fmt"
	"os"
	"time"

	"github.com/amonks/mapmend/bundle"
	"github.com/amonks/mapmend/internal/cache"
	"github.com/amonks/mapmend/internal/config"
	"github.com/amonks/mapmend/internal/db"
	"github.com/amonks/mapmend/internal/notify"
	"github.com/amonks/mapmend/lock"
	"github.com/amonks/mapmend/review"
	"github.com/amonks/mapmend/task"
	"github.com/amonks/mapmend/user"
)

const (
	challengeCacheSize = 256
	bundleCacheSize    = 256
	readCacheTTL       = time.Minute
)

// runtime wires the lifecycle components for one CLI invocation.
type runtime struct {
	cfg     *config.Config
	store   *task.Store
	locks   *lock.Manager
	engine  *task.Engine
	reviews *review.Workflow
	bundles *bundle.Manager
}

// openRuntime loads configuration, opens the store, and builds the
// component graph. Each invocation gets its own caches; nothing here is
// process-global.
func openRuntime() (*runtime, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DriverName(), cfg.DSNValue())
	if err != nil {
		return nil, err
	}

	lockTTL := cfg.Lock.TTL.Or(config.DefaultLockTTL)
	staleClaim := cfg.Review.StaleClaim.Or(config.DefaultStaleClaim)

	store := task.NewStore(database, lockTTL, cache.New[int64, task.Challenge](challengeCacheSize, readCacheTTL))
	if err := store.Migrate(); err != nil {
		return nil, err
	}

	gate := user.OpenGate{}
	dispatcher := notify.NewConsole(os.Stderr)
	locks := lock.NewManager(database, lockTTL)
	engine := task.NewEngine(store, locks, gate, dispatcher)
	reviews := review.NewWorkflow(store, gate, dispatcher, nil, staleClaim)
	bundles := bundle.NewManager(store, engine, reviews, gate, dispatcher, cache.New[int64, bundle.Bundle](bundleCacheSize, readCacheTTL))
	if err := bundles.Migrate(); err != nil {
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		store:   store,
		locks:   locks,
		engine:  engine,
		reviews: reviews,
		bundles: bundles,
	}, nil
}

// currentUser resolves the acting user from the persistent flags.
func currentUser() (user.User, error) {
	if flagUserID == 0 {
		return user.User{}, fmt.Errorf("--user is required")
	}
	return user.User{ID: flagUserID, SuperUser: flagSuper}, nil
}
