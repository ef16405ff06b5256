package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/inventura/internal/model"
)

// Kind classifies core failures.
type Kind string

// Error kinds.
const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalidInput     Kind = "invalid_input"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindStateConflict    Kind = "state_conflict"
	KindOutOfScope       Kind = "out_of_scope"
)

// Reasons refine a kind for callers that need to tell cases apart.
const (
	ReasonNoOpMove           = "no_op_move"
	ReasonAlreadyCompleted   = "already_completed"
	ReasonSessionCompleted   = "session_completed"
	ReasonDuplicateResult    = "duplicate_result"
	ReasonUnknownDeviceTypes = "unknown_device_types"
	ReasonEmployeeHasAssets  = "employee_has_assets"
	ReasonInUse              = "in_use"
	ReasonDuplicate          = "duplicate"
	ReasonConcurrentUpdate   = "concurrent_update"
)

// Error is a core failure with a stable kind and enough detail for the
// caller to act on it.
type Error struct {
	Kind    Kind
	Reason  string
	Message string

	// Assets lists the assets blocking an operation, if any.
	Assets []model.Asset
	// Codes lists offending codes, if any.
	Codes []string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Reason != "" {
		return strings.ReplaceAll(e.Reason, "_", " ")
	}
	return strings.ReplaceAll(string(e.Kind), "_", " ")
}

// Is matches on kind, and on reason when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrStateConflict    = &Error{Kind: KindStateConflict}
	ErrOutOfScope       = &Error{Kind: KindOutOfScope}

	ErrNoOpMove           = &Error{Kind: KindStateConflict, Reason: ReasonNoOpMove}
	ErrAlreadyCompleted   = &Error{Kind: KindStateConflict, Reason: ReasonAlreadyCompleted}
	ErrSessionCompleted   = &Error{Kind: KindStateConflict, Reason: ReasonSessionCompleted}
	ErrEmployeeHasAssets  = &Error{Kind: KindStateConflict, Reason: ReasonEmployeeHasAssets}
	ErrDuplicateResult    = &Error{Kind: KindConflict, Reason: ReasonDuplicateResult}
	ErrInUse              = &Error{Kind: KindConflict, Reason: ReasonInUse}
	ErrUnknownDeviceTypes = &Error{Kind: KindNotFound, Reason: ReasonUnknownDeviceTypes}
)

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func conflict(reason, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func stateConflict(reason, format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func inUse(what string, count int) *Error {
	return conflict(ReasonInUse, "cannot delete %s: referenced by %d record(s)", what, count)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// asConflict converts a unique violation into a Conflict error and wraps
// anything else with context.
func asConflict(err error, reason, message, context string) error {
	if isUniqueViolation(err) {
		return &Error{Kind: KindConflict, Reason: reason, Message: message}
	}
	return fmt.Errorf("%s: %w", context, err)
}
