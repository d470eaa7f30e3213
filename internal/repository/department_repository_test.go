package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
)

func TestDepartmentRepositoryCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery("INSERT INTO departments").
		WithArgs("SCI", "Science", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	department := &models.Department{Code: "SCI", Name: "Science"}
	require.NoError(t, repo.Create(context.Background(), department))
	require.Equal(t, int64(3), department.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery("INSERT INTO departments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "departments_code_key"})

	err := repo.Create(context.Background(), &models.Department{Code: "SCI", Name: "Science"})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestDepartmentRepositoryDeleteRestricted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "subjects_department_id_fkey", Table: "subjects"})

	err := repo.Delete(context.Background(), 5)
	require.ErrorIs(t, err, ErrRestricted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM departments WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 5)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDepartmentRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "name", "description", "created_at", "updated_at"}).
		AddRow(int64(1), "SCI", "Science", nil, now, now)
	mock.ExpectQuery("SELECT id, code, name, description, created_at, updated_at FROM departments").
		WithArgs("%sci%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM departments")).
		WithArgs("%sci%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	departments, total, err := repo.List(context.Background(), models.DepartmentFilter{Search: "Sci"})
	require.NoError(t, err)
	require.Len(t, departments, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
