package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/classdesk/classdesk-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll inserts one enrollment row after checking capacity. The class row
// is locked for the duration of the transaction, so two concurrent
// enrollments into the last open seat resolve deterministically: one
// commits, the other observes ErrCapacityExceeded. The unique
// (student_id, class_id) index surfaces ErrAlreadyEnrolled.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID string, classID int64) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	if err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM classes WHERE id = $1 FOR UPDATE`, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock class row: %w", err)
	}

	var enrolled int
	if err = tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM enrollments WHERE class_id = $1`, classID); err != nil {
		return nil, fmt.Errorf("count class enrollments: %w", err)
	}
	if enrolled >= capacity {
		err = ErrCapacityExceeded
		return nil, err
	}

	now := time.Now().UTC()
	row := &models.Enrollment{StudentID: studentID, ClassID: classID, CreatedAt: now, UpdatedAt: now}
	const insertQuery = `INSERT INTO enrollments (student_id, class_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	if err = tx.GetContext(ctx, &row.ID, insertQuery, row.StudentID, row.ClassID, row.CreatedAt, row.UpdatedAt); err != nil {
		err = translateConstraint(err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}
	return row, nil
}

// Unenroll deletes the enrollment for the pair. Removing an absent pair is
// a no-op; the returned bool reports whether a row was deleted.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, studentID string, classID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1 AND class_id = $2`, studentID, classID)
	if err != nil {
		return false, fmt.Errorf("unenroll: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unenroll: %w", err)
	}
	return rows > 0, nil
}

// ListRoster returns the enrollments of a class joined with student identity,
// ordered by enrollment time.
func (r *EnrollmentRepository) ListRoster(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	const query = `SELECT e.id, e.student_id, e.class_id, e.created_at, e.updated_at,
        u.name AS student_name, u.email AS student_email
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.class_id = $1
        ORDER BY e.created_at ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, classID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return roster, nil
}

// ListByStudent returns all enrollments for a student.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, created_at, updated_at FROM enrollments WHERE student_id = $1 ORDER BY created_at ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}
