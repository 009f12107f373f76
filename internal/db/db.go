// Package db opens the relational store and provides the transaction
// primitives the domain packages build on.
//
// Every mutating operation in the core runs inside a single InTransaction
// call so that concurrent requests racing on the same task serialize on
// the row lock rather than on application state.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrStorageUnavailable indicates the store failed twice on a transient
// fault. Business-rule failures are never wrapped in this error.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrUnknownDriver indicates an unrecognized database driver name.
var ErrUnknownDriver = errors.New("unknown database driver")

// DB wraps a gorm connection with the unit-of-work helpers used by the
// domain packages.
type DB struct {
	gorm   *gorm.DB
	driver string
}

// Open connects to the database identified by driver and dsn.
func Open(driver, dsn string) (*DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &DB{gorm: conn, driver: driver}, nil
}

// Wrap adapts an already-open gorm connection. Used by tests.
func Wrap(conn *gorm.DB, driver string) *DB {
	return &DB{gorm: conn, driver: driver}
}

// Gorm returns the underlying connection for read-only queries.
// Mutations must go through InTransaction.
func (d *DB) Gorm() *gorm.DB {
	return d.gorm
}

// AutoMigrate creates or updates the schema for the given models.
func (d *DB) AutoMigrate(models ...any) error {
	if err := d.gorm.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// InTransaction runs fn inside a single storage transaction. Transient
// faults (deadlock, lost connection) are retried once; a second failure
// surfaces as ErrStorageUnavailable. Business errors returned by fn roll
// the transaction back and propagate unchanged.
func (d *DB) InTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	run := func() error {
		return d.gorm.WithContext(ctx).Transaction(fn)
	}

	err := run()
	if err == nil || !isTransient(err) {
		return err
	}

	if retryErr := run(); retryErr != nil {
		if isTransient(retryErr) {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, retryErr)
		}
		return retryErr
	}
	return nil
}

// ForUpdate adds a row-level lock to the query on dialects that support
// it. SQLite serializes writing transactions on its own, so the clause is
// omitted there.
func (d *DB) ForUpdate(tx *gorm.DB) *gorm.DB {
	if d.driver == DriverPostgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// isTransient reports whether an error is worth one retry at the
// transaction boundary.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, marker := range []string{
		"deadlock",
		"connection reset",
		"connection refused",
		"broken pipe",
		"bad connection",
		"database is locked",
		"serialization failure",
	} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
