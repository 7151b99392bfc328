package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Violation classifies a constraint failure reported by the database.
type Violation int

const (
	ViolationUnique Violation = iota + 1
	ViolationForeignKey
	ViolationNotNull
	ViolationCheck
)

func (v Violation) String() string {
	switch v {
	case ViolationUnique:
		return "unique"
	case ViolationForeignKey:
		return "foreign_key"
	case ViolationNotNull:
		return "not_null"
	case ViolationCheck:
		return "check"
	default:
		return "unknown"
	}
}

var violationMessages = map[Violation]string{
	ViolationUnique:     "A record with the same unique value already exists.",
	ViolationForeignKey: "A referenced record does not exist.",
	ViolationNotNull:    "A required value is missing.",
	ViolationCheck:      "A value is outside of its allowed range.",
}

var pgViolations = map[string]Violation{
	"23505": ViolationUnique,
	"23503": ViolationForeignKey,
	"23502": ViolationNotNull,
	"23514": ViolationCheck,
}

var sqliteViolations = map[sqlite3.ErrNoExtended]Violation{
	sqlite3.ErrConstraintUnique:     ViolationUnique,
	sqlite3.ErrConstraintPrimaryKey: ViolationUnique,
	sqlite3.ErrConstraintForeignKey: ViolationForeignKey,
	sqlite3.ErrConstraintNotNull:    ViolationNotNull,
	sqlite3.ErrConstraintCheck:      ViolationCheck,
}

// ConstraintError is a database integrity failure safe to show to clients.
type ConstraintError struct {
	Kind       Violation
	Constraint string
	Message    string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s violation on %s: %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s violation: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Translate turns driver constraint errors into *ConstraintError and
// returns any other error unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var existing *ConstraintError
	if errors.As(err, &existing) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := pgViolations[pgErr.Code]; ok {
			return newConstraintError(kind, pgErr.ConstraintName, err)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		if kind, ok := sqliteViolations[liteErr.ExtendedCode]; ok {
			return newConstraintError(kind, "", err)
		}
	}
	return err
}

func newConstraintError(kind Violation, constraint string, err error) *ConstraintError {
	return &ConstraintError{
		Kind:       kind,
		Constraint: constraint,
		Message:    violationMessages[kind],
		Err:        err,
	}
}

// IsViolation reports whether err is a constraint failure of the given kind.
func IsViolation(err error, kind Violation) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Kind == kind
}
