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

type enrollmentRepoMock struct {
	enrollErr     error
	enrollment    *models.Enrollment
	unenrolled    bool
	unenrollErr   error
	roster        []models.RosterEntry
	byStudent     []models.Enrollment
	unenrollCalls int
}

func (m *enrollmentRepoMock) Enroll(ctx context.Context, studentID string, classID int64) (*models.Enrollment, error) {
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	if m.enrollment != nil {
		return m.enrollment, nil
	}
	return &models.Enrollment{ID: 1, StudentID: studentID, ClassID: classID}, nil
}

func (m *enrollmentRepoMock) Unenroll(ctx context.Context, studentID string, classID int64) (bool, error) {
	m.unenrollCalls++
	return m.unenrolled, m.unenrollErr
}

func (m *enrollmentRepoMock) ListRoster(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	return m.roster, nil
}

func (m *enrollmentRepoMock) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return m.byStudent, nil
}

type classReaderMock struct {
	class     *models.Class
	findErr   error
	invite    *models.Class
	inviteErr error
}

func (m *classReaderMock) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.class, nil
}

func (m *classReaderMock) FindByInviteCode(ctx context.Context, code string) (*models.Class, error) {
	if m.inviteErr != nil {
		return nil, m.inviteErr
	}
	return m.invite, nil
}

func studentReader() *userReaderMock {
	return &userReaderMock{users: map[string]*models.User{
		"stu-1": {ID: "stu-1", Role: models.RoleStudent},
		"tch-1": {ID: "tch-1", Role: models.RoleTeacher},
	}}
}

func TestEnrollmentServiceEnrollSuccess(t *testing.T) {
	repo := &enrollmentRepoMock{}
	svc := NewEnrollmentService(repo, &classReaderMock{}, studentReader(), nil, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), "stu-1", 9)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", enrollment.StudentID)
	assert.Equal(t, int64(9), enrollment.ClassID)
}

func TestEnrollmentServiceEnrollUnknownStudent(t *testing.T) {
	repo := &enrollmentRepoMock{}
	svc := NewEnrollmentService(repo, &classReaderMock{}, studentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), "ghost", 9)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}

func TestEnrollmentServiceEnrollRejectsTeacher(t *testing.T) {
	repo := &enrollmentRepoMock{}
	svc := NewEnrollmentService(repo, &classReaderMock{}, studentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), "tch-1", 9)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrValidation.Status, apiErr.Status)
}

func TestEnrollmentServiceEnrollUnknownClass(t *testing.T) {
	repo := &enrollmentRepoMock{enrollErr: sql.ErrNoRows}
	svc := NewEnrollmentService(repo, &classReaderMock{}, studentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), "stu-1", 404)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}

func TestEnrollmentServiceEnrollAlreadyEnrolled(t *testing.T) {
	repo := &enrollmentRepoMock{enrollErr: repository.ErrAlreadyEnrolled}
	svc := NewEnrollmentService(repo, &classReaderMock{}, studentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), "stu-1", 9)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
}

func TestEnrollmentServiceEnrollCapacityExceeded(t *testing.T) {
	repo := &enrollmentRepoMock{enrollErr: repository.ErrCapacityExceeded}
	svc := NewEnrollmentService(repo, &classReaderMock{}, studentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), "stu-1", 9)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
}

func TestEnrollmentServiceJoinByInviteUnknownCode(t *testing.T) {
	repo := &enrollmentRepoMock{}
	classes := &classReaderMock{inviteErr: sql.ErrNoRows}
	svc := NewEnrollmentService(repo, classes, studentReader(), nil, nil, nil)

	_, err := svc.JoinByInvite(context.Background(), "stu-1", JoinByInviteRequest{InviteCode: "NOPE2345"})
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}

func TestEnrollmentServiceJoinByInviteInactiveClass(t *testing.T) {
	repo := &enrollmentRepoMock{}
	classes := &classReaderMock{invite: &models.Class{ID: 9, Status: models.ClassStatusArchived}}
	svc := NewEnrollmentService(repo, classes, studentReader(), nil, nil, nil)

	_, err := svc.JoinByInvite(context.Background(), "stu-1", JoinByInviteRequest{InviteCode: "ABCD2345"})
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrConflict.Status, apiErr.Status)
}

func TestEnrollmentServiceJoinByInviteEnrolls(t *testing.T) {
	repo := &enrollmentRepoMock{}
	classes := &classReaderMock{invite: &models.Class{ID: 9, Status: models.ClassStatusActive}}
	svc := NewEnrollmentService(repo, classes, studentReader(), nil, nil, nil)

	enrollment, err := svc.JoinByInvite(context.Background(), "stu-1", JoinByInviteRequest{InviteCode: "ABCD2345"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), enrollment.ClassID)
}

func TestEnrollmentServiceUnenrollIdempotent(t *testing.T) {
	repo := &enrollmentRepoMock{unenrolled: false}
	svc := NewEnrollmentService(repo, &classReaderMock{}, studentReader(), nil, nil, nil)

	require.NoError(t, svc.Unenroll(context.Background(), "stu-1", 9))
	assert.Equal(t, 1, repo.unenrollCalls)
}

func TestEnrollmentServiceRosterUnknownClass(t *testing.T) {
	repo := &enrollmentRepoMock{}
	classes := &classReaderMock{findErr: sql.ErrNoRows}
	svc := NewEnrollmentService(repo, classes, studentReader(), nil, nil, nil)

	_, err := svc.Roster(context.Background(), 404)
	var apiErr *appErrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, appErrors.ErrNotFound.Status, apiErr.Status)
}
