// internal/pkg/database/transactor.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that make a whole transaction safe to retry
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// Transactor runs a unit of work in one database transaction
type Transactor struct {
	db   *gorm.DB
	opts *sql.TxOptions
}

// NewTransactor creates a transactor. isolation is read_committed, repeatable_read,
// serializable, or empty for the driver default.
func NewTransactor(db *gorm.DB, isolation string) *Transactor {
	t := &Transactor{db: db}
	if level, ok := isolationLevel(isolation); ok {
		t.opts = &sql.TxOptions{Isolation: level}
	}
	return t
}

// Run executes fn in a transaction. Everything fn wrote is rolled back if it returns
// an error or panics. Serialization failures, deadlocks, unique-index races and
// failed commits come back as TRANSIENT_PERSISTENCE_FAILURE.
func (t *Transactor) Run(ctx context.Context, operation string, fn func(tx *gorm.DB) error) (err error) {
	var tx *gorm.DB
	if t.opts != nil {
		tx = t.db.WithContext(ctx).Begin(t.opts)
	} else {
		tx = t.db.WithContext(ctx).Begin()
	}
	if tx.Error != nil {
		return apperrors.Transient(operation, fmt.Errorf("failed to begin transaction: %w", tx.Error))
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = apperrors.Internal("", fmt.Errorf("panic in %s transaction: %v", operation, r))
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return classify(operation, err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.Transient(operation, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// IsTransient reports whether err is a concurrency failure the store resolved by
// aborting the transaction
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateUniqueViolation:
			return true
		}
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func classify(operation string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if IsTransient(err) {
		return apperrors.Transient(operation, err)
	}
	return err
}

func isolationLevel(name string) (sql.IsolationLevel, bool) {
	switch name {
	case "read_committed":
		return sql.LevelReadCommitted, true
	case "repeatable_read":
		return sql.LevelRepeatableRead, true
	case "serializable":
		return sql.LevelSerializable, true
	default:
		return sql.LevelDefault, false
	}
}
