package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/middleware"
	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/service"
)

type enrollmentServiceMock struct {
	enrollErr     error
	joinErr       error
	roster        []models.RosterEntry
	rosterErr     error
	unenrollErr   error
	lastStudentID string
	lastClassID   int64
	lastInvite    string
	enrollCalled  bool
	unenrollOK    bool
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, studentID string, classID int64) (*models.Enrollment, error) {
	m.enrollCalled = true
	m.lastStudentID = studentID
	m.lastClassID = classID
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return &models.Enrollment{ID: 1, StudentID: studentID, ClassID: classID}, nil
}

func (m *enrollmentServiceMock) JoinByInvite(ctx context.Context, studentID string, req service.JoinByInviteRequest) (*models.Enrollment, error) {
	m.lastStudentID = studentID
	m.lastInvite = req.InviteCode
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	return &models.Enrollment{ID: 2, StudentID: studentID, ClassID: 9}, nil
}

func (m *enrollmentServiceMock) Roster(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	return m.roster, m.rosterErr
}

func (m *enrollmentServiceMock) Unenroll(ctx context.Context, studentID string, classID int64) error {
	m.unenrollOK = true
	m.lastStudentID = studentID
	m.lastClassID = classID
	return m.unenrollErr
}

func TestEnrollmentHandlerStudentEnrollsSelfOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/classes/7/enrollments", bytes.NewBufferString(`{"student_id":"someone-else"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-1", Role: models.RoleStudent})

	handler.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", mockSvc.lastStudentID)
	assert.Equal(t, int64(7), mockSvc.lastClassID)
}

func TestEnrollmentHandlerAdminMustNameStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/classes/7/enrollments", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: "adm-1", Role: models.RoleAdmin})

	handler.Enroll(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.enrollCalled)
}

func TestEnrollmentHandlerJoinRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/classes/join", bytes.NewBufferString(`{"invite_code":"ABCD2345"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Join(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnrollmentHandlerJoinUsesCallerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/classes/join", bytes.NewBufferString(`{"invite_code":"ABCD2345"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-1", Role: models.RoleStudent})

	handler.Join(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", mockSvc.lastStudentID)
	assert.Equal(t, "ABCD2345", mockSvc.lastInvite)
}

func TestEnrollmentHandlerUnenrollForbiddenForOtherStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/classes/7/enrollments/stu-2", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "studentId", Value: "stu-2"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: "stu-1", Role: models.RoleStudent})

	handler.Unenroll(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, mockSvc.unenrollOK)
}

func TestEnrollmentHandlerUnenroll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/classes/7/enrollments/stu-2", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "studentId", Value: "stu-2"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: "tch-1", Role: models.RoleTeacher})

	handler.Unenroll(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "stu-2", mockSvc.lastStudentID)
}

func TestEnrollmentHandlerRosterInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/classes/zero/enrollments", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "zero"}}

	handler.Roster(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
