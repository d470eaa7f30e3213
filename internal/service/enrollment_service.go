package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, studentID string, classID int64) (*models.Enrollment, error)
	Unenroll(ctx context.Context, studentID string, classID int64) (bool, error)
	ListRoster(ctx context.Context, classID int64) ([]models.RosterEntry, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type classReader interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
	FindByInviteCode(ctx context.Context, code string) (*models.Class, error)
}

// EnrollRequest registers a student into a class by id.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// JoinByInviteRequest registers the caller into the class owning the code.
type JoinByInviteRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   classReader
	users     userReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. Metrics may be nil when
// the feature flag is off.
func NewEnrollmentService(repo enrollmentRepository, classes classReader, users userReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, classes: classes, users: users, metrics: metrics, validator: validate, logger: logger}
}

// Enroll registers a student into a class. The capacity check and the
// insert run atomically in the store, so a full class never over-admits
// under concurrent requests.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, classID int64) (*models.Enrollment, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeFailure(err, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only students can be enrolled")
	}

	enrollment, err := s.repo.Enroll(ctx, studentID, classID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			s.metrics.RecordEnrollment("unknown_class")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			s.metrics.RecordEnrollment("duplicate")
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this class")
		case errors.Is(err, repository.ErrCapacityExceeded):
			s.metrics.RecordEnrollment("capacity_exceeded")
			return nil, appErrors.Clone(appErrors.ErrConflict, "class capacity exceeded")
		case errors.Is(err, repository.ErrMissingParent):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student or class not found")
		}
		return nil, storeFailure(err, "failed to enroll student")
	}

	s.metrics.RecordEnrollment("enrolled")
	return enrollment, nil
}

// JoinByInvite resolves the invite code and enrolls the caller into the
// owning class.
func (s *EnrollmentService) JoinByInvite(ctx context.Context, studentID string, req JoinByInviteRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	class, err := s.classes.FindByInviteCode(ctx, req.InviteCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invite code not recognised")
		}
		return nil, storeFailure(err, "failed to resolve invite code")
	}
	if class.Status != models.ClassStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is not accepting enrollments")
	}

	return s.Enroll(ctx, studentID, class.ID)
}

// Unenroll removes the student's enrollment. Removing an absent pair is an
// idempotent no-op.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID string, classID int64) error {
	if _, err := s.repo.Unenroll(ctx, studentID, classID); err != nil {
		return storeFailure(err, "failed to unenroll student")
	}
	return nil
}

// Roster returns the ordered list of enrollments for a class with student
// identity attached.
func (s *EnrollmentService) Roster(ctx context.Context, classID int64) ([]models.RosterEntry, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeFailure(err, "failed to load class")
	}

	roster, err := s.repo.ListRoster(ctx, classID)
	if err != nil {
		return nil, storeFailure(err, "failed to load class roster")
	}
	return roster, nil
}

// ListByStudent returns all enrollments held by a student.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storeFailure(err, "failed to list enrollments")
	}
	return enrollments, nil
}
