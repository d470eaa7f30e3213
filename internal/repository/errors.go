package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// Typed store errors. Uniqueness and referential integrity are enforced by
// the database's own indexes and foreign keys; repositories translate the
// resulting constraint violations here so the race window between a check
// and an insert stays closed.
var (
	ErrDuplicateCode    = errors.New("code already in use")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrDuplicateToken   = errors.New("session token already exists")
	ErrDuplicateInvite  = errors.New("invite code already exists")
	ErrDuplicateAccount = errors.New("provider account already linked")
	ErrAlreadyEnrolled  = errors.New("student already enrolled in class")
	ErrCapacityExceeded = errors.New("class capacity exceeded")
	ErrInvalidCapacity  = errors.New("capacity must be positive")
	ErrMissingParent    = errors.New("referenced row does not exist")
	ErrRestricted       = errors.New("dependent rows exist")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// translateConstraint maps a pq constraint violation onto its typed error.
// Unrecognised errors pass through unchanged.
func translateConstraint(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case "users_email_key":
			return ErrDuplicateEmail
		case "sessions_token_key":
			return ErrDuplicateToken
		case "accounts_provider_id_account_id_key":
			return ErrDuplicateAccount
		case "departments_code_key", "subjects_code_key":
			return ErrDuplicateCode
		case "classes_invite_code_key":
			return ErrDuplicateInvite
		case "enrollments_student_id_class_id_key":
			return ErrAlreadyEnrolled
		}
	case pqForeignKeyViolation:
		// Postgres reports the child table for both missing-parent inserts and
		// blocked deletes, so the violation alone cannot tell them apart. Only
		// insert and update paths call this translator; delete paths use
		// translateDeleteConstraint.
		return ErrMissingParent
	case pqCheckViolation:
		if pqErr.Constraint == "classes_capacity_check" {
			return ErrInvalidCapacity
		}
	}

	return err
}

// translateDeleteConstraint maps constraint violations raised while deleting
// a parent row. A foreign key violation here always means a RESTRICT
// dependent still references the row; cascade keys never block deletes.
func translateDeleteConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation {
		return ErrRestricted
	}
	return err
}

// IsTransient reports whether the failure is a store timeout or connection
// loss that the caller may safely retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions. 57014: statement timeout.
		if len(pqErr.Code) >= 2 && pqErr.Code[:2] == "08" {
			return true
		}
		if string(pqErr.Code) == "57014" {
			return true
		}
	}
	return false
}
