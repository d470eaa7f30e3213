package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
)

func TestSubjectRepositoryCreateMissingDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery("INSERT INTO subjects").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "subjects_department_id_fkey", Table: "subjects"})

	subject := &models.Subject{DepartmentID: 99, Code: "MATH101", Name: "Algebra"}
	err := repo.Create(context.Background(), subject)
	require.ErrorIs(t, err, ErrMissingParent)
}

func TestSubjectRepositoryDeleteCascadeRemovesClassesAndEnrollments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE class_id IN (SELECT id FROM classes WHERE subject_id = $1)")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE subject_id = $1")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), 8))
	require.NoError(t, mock.ExpectationsWereMet())
}
