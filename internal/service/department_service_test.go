package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type departmentRepoMock struct {
	departments  []models.Department
	byID         *models.Department
	findErr      error
	createErr    error
	updateErr    error
	deleteErr    error
	subjectCount int
	countErr     error
	created      *models.Department
	deletedID    int64
}

func (m *departmentRepoMock) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error) {
	return m.departments, len(m.departments), nil
}

func (m *departmentRepoMock) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.byID, nil
}

func (m *departmentRepoMock) Create(ctx context.Context, department *models.Department) error {
	if m.createErr != nil {
		return m.createErr
	}
	department.ID = 1
	m.created = department
	return nil
}

func (m *departmentRepoMock) Update(ctx context.Context, department *models.Department) error {
	return m.updateErr
}

func (m *departmentRepoMock) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	return nil
}

func (m *departmentRepoMock) CountSubjects(ctx context.Context, id int64) (int, error) {
	return m.subjectCount, m.countErr
}

func TestDepartmentServiceCreateNormalisesCode(t *testing.T) {
	repo := &departmentRepoMock{}
	svc := NewDepartmentService(repo, nil, nil)

	department, err := svc.Create(context.Background(), CreateDepartmentRequest{Code: " sci ", Name: "Science"})
	require.NoError(t, err)
	assert.Equal(t, "SCI", department.Code)
	assert.Equal(t, int64(1), department.ID)
}

func TestDepartmentServiceCreateDuplicateCode(t *testing.T) {
	repo := &departmentRepoMock{createErr: repository.ErrDuplicateCode}
	svc := NewDepartmentService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateDepartmentRequest{Code: "SCI", Name: "Science"})
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
}

func TestDepartmentServiceDeleteBlockedByDependentSubjects(t *testing.T) {
	repo := &departmentRepoMock{subjectCount: 3}
	svc := NewDepartmentService(repo, nil, nil)

	err := svc.Delete(context.Background(), 5)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
	assert.Zero(t, repo.deletedID)
}

func TestDepartmentServiceDeleteRestrictBackstop(t *testing.T) {
	repo := &departmentRepoMock{deleteErr: repository.ErrRestricted}
	svc := NewDepartmentService(repo, nil, nil)

	err := svc.Delete(context.Background(), 5)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
}

func TestDepartmentServiceDeleteMissing(t *testing.T) {
	repo := &departmentRepoMock{deleteErr: sql.ErrNoRows}
	svc := NewDepartmentService(repo, nil, nil)

	err := svc.Delete(context.Background(), 5)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}

func TestDepartmentServiceGetTransientFailure(t *testing.T) {
	repo := &departmentRepoMock{findErr: context.DeadlineExceeded}
	svc := NewDepartmentService(repo, nil, nil)

	_, err := svc.Get(context.Background(), 5)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrTransient.Status, apiErr.Status)
}
