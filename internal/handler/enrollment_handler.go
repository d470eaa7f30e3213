package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, studentID string, classID int64) (*models.Enrollment, error)
	JoinByInvite(ctx context.Context, studentID string, req service.JoinByInviteRequest) (*models.Enrollment, error)
	Roster(ctx context.Context, classID int64) ([]models.RosterEntry, error)
	Unenroll(ctx context.Context, studentID string, classID int64) error
}

// EnrollmentHandler handles enrollment endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll a student into a class
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Class ID"
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /subjects/classes/{id}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	classID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	// Students may only enroll themselves; staff can enroll anyone.
	user := userFromContext(c)
	if user != nil && user.Role == models.RoleStudent {
		req.StudentID = user.ID
	}
	if req.StudentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), req.StudentID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Join godoc
// @Summary Join a class by invite code
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.JoinByInviteRequest true "Invite payload"
// @Success 201 {object} response.Envelope
// @Router /subjects/classes/join [post]
func (h *EnrollmentHandler) Join(c *gin.Context) {
	var req service.JoinByInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	enrollment, err := h.service.JoinByInvite(c.Request.Context(), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Roster godoc
// @Summary List class roster
// @Tags Enrollments
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/classes/{id}/enrollments [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	classID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	roster, err := h.service.Roster(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Unenroll godoc
// @Summary Remove a student from a class
// @Tags Enrollments
// @Produce json
// @Param id path int true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /subjects/classes/{id}/enrollments/{studentId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	classID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	studentID := c.Param("studentId")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid studentId path parameter"))
		return
	}

	// Students may only remove their own enrollment.
	if user := userFromContext(c); user != nil && user.Role == models.RoleStudent && user.ID != studentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	if err := h.service.Unenroll(c.Request.Context(), studentID, classID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
