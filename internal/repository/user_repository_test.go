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

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	user := &models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent}
	err := repo.Create(context.Background(), user)
	require.ErrorIs(t, err, ErrDuplicateEmail)
	require.NotEmpty(t, user.ID)
}

func TestUserRepositoryDeleteCascadeRestrictedForTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "tch-1")
	require.ErrorIs(t, err, ErrRestricted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteCascadeRemovesDependents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE teacher_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accounts WHERE user_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "stu-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailIsCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("LOWER\\(email\\) = LOWER\\(\\$1\\)").
		WithArgs("ADA@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "email_verified", "role"}).
			AddRow("u-1", "Ada", "ada@example.com", true, models.RoleStudent))

	user, err := repo.FindByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	require.Equal(t, "u-1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
