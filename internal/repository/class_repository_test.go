package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
)

func TestClassRepositoryCreateDuplicateInvite(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("INSERT INTO classes").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "classes_invite_code_key"})

	class := &models.Class{SubjectID: 1, TeacherID: "tch-1", InviteCode: "ABCD2345", Name: "Algebra A", Capacity: 30, Status: models.ClassStatusActive}
	err := repo.Create(context.Background(), class)
	require.ErrorIs(t, err, ErrDuplicateInvite)
}

func TestClassRepositoryCreateMissingTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("INSERT INTO classes").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "classes_teacher_id_fkey", Table: "classes"})

	class := &models.Class{SubjectID: 1, TeacherID: "nobody", InviteCode: "ABCD2345", Name: "Algebra A", Capacity: 30, Status: models.ClassStatusActive}
	err := repo.Create(context.Background(), class)
	require.ErrorIs(t, err, ErrMissingParent)
}

func TestClassRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE class_id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteCascadeMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE class_id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), 4)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET status").
		WithArgs(int64(4), models.ClassStatusArchived, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 4, models.ClassStatusArchived)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
