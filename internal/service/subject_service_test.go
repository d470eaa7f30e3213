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

type subjectRepoMock struct {
	byID       *models.Subject
	findErr    error
	createErr  error
	updateErr  error
	cascadeErr error
	cascadedID int64
}

func (m *subjectRepoMock) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	return nil, 0, nil
}

func (m *subjectRepoMock) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.byID, nil
}

func (m *subjectRepoMock) Create(ctx context.Context, subject *models.Subject) error {
	if m.createErr != nil {
		return m.createErr
	}
	subject.ID = 11
	return nil
}

func (m *subjectRepoMock) Update(ctx context.Context, subject *models.Subject) error {
	return m.updateErr
}

func (m *subjectRepoMock) DeleteCascade(ctx context.Context, id int64) error {
	if m.cascadeErr != nil {
		return m.cascadeErr
	}
	m.cascadedID = id
	return nil
}

type departmentReaderMock struct {
	department *models.Department
	err        error
}

func (m *departmentReaderMock) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.department, nil
}

func TestSubjectServiceCreateUnknownDepartment(t *testing.T) {
	repo := &subjectRepoMock{}
	departments := &departmentReaderMock{err: sql.ErrNoRows}
	svc := NewSubjectService(repo, departments, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{DepartmentID: 99, Code: "MATH101", Name: "Algebra"})
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}

func TestSubjectServiceCreateDuplicateCode(t *testing.T) {
	repo := &subjectRepoMock{createErr: repository.ErrDuplicateCode}
	departments := &departmentReaderMock{department: &models.Department{ID: 1}}
	svc := NewSubjectService(repo, departments, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{DepartmentID: 1, Code: "MATH101", Name: "Algebra"})
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
}

func TestSubjectServiceCreateNormalisesCode(t *testing.T) {
	repo := &subjectRepoMock{}
	departments := &departmentReaderMock{department: &models.Department{ID: 1}}
	svc := NewSubjectService(repo, departments, nil, nil)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{DepartmentID: 1, Code: " math101 ", Name: "Algebra"})
	require.NoError(t, err)
	assert.Equal(t, "MATH101", subject.Code)
}

func TestSubjectServiceDeleteCascadesUnconditionally(t *testing.T) {
	repo := &subjectRepoMock{}
	departments := &departmentReaderMock{}
	svc := NewSubjectService(repo, departments, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), 8))
	assert.Equal(t, int64(8), repo.cascadedID)
}
