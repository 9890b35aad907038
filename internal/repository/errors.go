package repository

import (
	"errors"
	"strings"

	"ucsattendance/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrOpenSessionExists means the open-session unique index rejected a write.
	ErrOpenSessionExists = errors.New("person already has an open session")
	// ErrSessionAlreadyClosed means the session was closed by another writer.
	ErrSessionAlreadyClosed = errors.New("session already closed")
)

// IsNotFound reports whether err is GORM's record-not-found.
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

const (
	pgUniqueViolation     = "23505"
	pgSerializationFailed = "40001"
	pgDeadlockDetected    = "40P01"
)

// IsTransient reports whether err is a lock conflict that a fresh attempt of
// the whole transaction may get past: a postgres deadlock or serialization
// failure, or a busy/locked sqlite database.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailed
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// translateWriteError maps driver-level unique violations of the open-session
// index onto ErrOpenSessionExists and leaves every other error untouched.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		pgErr.Code == pgUniqueViolation &&
		pgErr.ConstraintName == model.OpenSessionIndex {
		return ErrOpenSessionExists
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) &&
		liteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
		strings.Contains(liteErr.Error(), "attendance_sessions.person_key") {
		return ErrOpenSessionExists
	}
	return err
}
