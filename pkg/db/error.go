package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/tradebook/internal/errs"
	"gorm.io/gorm"
)

// ErrWriteConflict is returned when the database rejects a write because a
// concurrent transaction touched the same rows first.
var ErrWriteConflict = errs.New(errs.ErrConflict, "write_conflict")

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := err.Error()
	// MySQL (error code 1062)
	if strings.Contains(msg, "Error 1062") {
		return true
	}
	// SQLite (error code 2067)
	return strings.Contains(msg, "UNIQUE constraint failed")
}

// IsConflictErr reports lock contention and serialization failures, all of
// which succeed when the whole transaction is retried.
func IsConflictErr(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}

	msg := err.Error()
	// MySQL deadlock (1213) and lock wait timeout (1205)
	if strings.Contains(msg, "Error 1213") || strings.Contains(msg, "Error 1205") {
		return true
	}
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// Classify maps contention and duplicate-key failures to ErrWriteConflict.
// Other errors pass through untouched.
func Classify(err error) error {
	if err == nil || errs.IsConflict(err) {
		return err
	}
	if IsConflictErr(err) || IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: %v", ErrWriteConflict, err)
	}
	return err
}
