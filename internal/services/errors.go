package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error kinds returned by the account lifecycle. Callers match them with errors.Is.
var (
	// ErrConflict indicates an account with the same email already exists.
	ErrConflict = errors.New("account: email already registered")
	// ErrNotFound covers unknown accounts and unknown, expired or already consumed tokens.
	ErrNotFound = errors.New("account: not found")
	// ErrUnauthorized covers bad credentials and accounts that are not yet active.
	ErrUnauthorized = errors.New("account: invalid credentials")
	// ErrValidation signals malformed input.
	ErrValidation = errors.New("account: invalid input")
	// ErrStore signals an underlying persistence failure.
	ErrStore = errors.New("account: storage failure")
)

// StoreError wraps a persistence failure without exposing its cause through the error chain.
// The cause stays available to logging via Cause.
type StoreError struct {
	Op    string
	cause error
}

func newStoreError(op string, cause error) *StoreError {
	return &StoreError{Op: op, cause: cause}
}

func (e *StoreError) Error() string {
	return "account: " + e.Op + ": storage failure"
}

// Unwrap only exposes ErrStore so driver errors never leak to callers.
func (e *StoreError) Unwrap() error {
	return ErrStore
}

// Cause returns the underlying store error for diagnostics.
func (e *StoreError) Cause() error {
	return e.cause
}

func validationError(msg string) error {
	return &fieldError{msg: msg}
}

type fieldError struct {
	msg string
}

func (e *fieldError) Error() string { return "account: " + e.msg }

func (e *fieldError) Unwrap() error { return ErrValidation }

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}
