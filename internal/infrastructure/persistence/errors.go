package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/travelops/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes that indicate a lost race rather than a broken query
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
)

// translateError maps driver and ORM errors onto domain error codes.
// Domain errors pass through unchanged.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("%s not found", entity))
	}

	// a duplicate voucher or sequence key means another transaction won the race
	if isConcurrencyError(err) || isUniqueViolation(err) {
		return shared.NewConcurrencyConflict(err)
	}

	return shared.NewPersistenceFailure(fmt.Errorf("%s: %w", entity, err))
}

// isConcurrencyError reports lock timeouts, deadlocks and serialization failures
func isConcurrencyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return true
		}
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	return false
}

// isUniqueViolation reports a duplicate key error
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateUniqueViolation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return errors.Is(err, gorm.ErrDuplicatedKey)
}
