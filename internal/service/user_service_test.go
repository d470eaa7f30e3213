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

type userStoreMock struct {
	user       *models.User
	findErr    error
	deleteErr  error
	deletedIDs []string
}

func (m *userStoreMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *userStoreMock) DeleteCascade(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

type teacherClassCounterMock struct {
	count    int
	countErr error
}

func (m *teacherClassCounterMock) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	return m.count, m.countErr
}

func TestUserServiceGetMissing(t *testing.T) {
	svc := NewUserService(&userStoreMock{findErr: sql.ErrNoRows}, &teacherClassCounterMock{}, nil)

	_, err := svc.Get(context.Background(), "ghost")
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}

func TestUserServiceDeleteBlockedForActiveTeacher(t *testing.T) {
	store := &userStoreMock{}
	svc := NewUserService(store, &teacherClassCounterMock{count: 2}, nil)

	err := svc.Delete(context.Background(), "tch-1")
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
	assert.Empty(t, store.deletedIDs)
}

func TestUserServiceDeleteRestrictBackstop(t *testing.T) {
	store := &userStoreMock{deleteErr: repository.ErrRestricted}
	svc := NewUserService(store, &teacherClassCounterMock{}, nil)

	err := svc.Delete(context.Background(), "tch-1")
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
}

func TestUserServiceDeleteMissing(t *testing.T) {
	store := &userStoreMock{deleteErr: sql.ErrNoRows}
	svc := NewUserService(store, &teacherClassCounterMock{}, nil)

	err := svc.Delete(context.Background(), "ghost")
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}

func TestUserServiceDeleteCascades(t *testing.T) {
	store := &userStoreMock{}
	svc := NewUserService(store, &teacherClassCounterMock{}, nil)

	require.NoError(t, svc.Delete(context.Background(), "stu-1"))
	assert.Equal(t, []string{"stu-1"}, store.deletedIDs)
}
