package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/export"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id int64) (*models.Class, error)
	FindByInviteCode(ctx context.Context, code string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	UpdateStatus(ctx context.Context, id int64, status models.ClassStatus) error
	DeleteCascade(ctx context.Context, id int64) error
}

type subjectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type rosterReader interface {
	ListRoster(ctx context.Context, classID int64) ([]models.RosterEntry, error)
}

// CreateClassRequest captures fields for creating classes. Capacity defaults
// to 50 when omitted; schedules are stored exactly as provided.
type CreateClassRequest struct {
	SubjectID int64               `json:"subject_id" validate:"required,gt=0"`
	TeacherID string              `json:"teacher_id" validate:"required"`
	Name      string              `json:"name" validate:"required"`
	Capacity  *int                `json:"capacity,omitempty"`
	Banner    *string             `json:"banner,omitempty"`
	Schedules models.ScheduleList `json:"schedules,omitempty"`
}

// UpdateClassRequest modifies mutable class fields.
type UpdateClassRequest struct {
	Name      string              `json:"name" validate:"required"`
	Capacity  *int                `json:"capacity,omitempty"`
	Banner    *string             `json:"banner,omitempty"`
	Schedules models.ScheduleList `json:"schedules,omitempty"`
}

// UpdateClassStatusRequest sets the lifecycle status.
type UpdateClassStatusRequest struct {
	Status models.ClassStatus `json:"status" validate:"required"`
}

// inviteCodeAttempts bounds the collision-retry loop; the alphabet is large
// enough that a second attempt is already rare.
const inviteCodeAttempts = 5

// inviteCodeAlphabet omits easily confused characters.
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ClassService handles class domain workflows.
type ClassService struct {
	repo       classRepository
	subjects   subjectReader
	users      userReader
	roster     rosterReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	codeLength int
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassService creates a new class service.
func NewClassService(repo classRepository, subjects subjectReader, users userReader, roster rosterReader, codeLength int, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codeLength <= 0 {
		codeLength = 8
	}
	return &ClassService{
		repo:       repo,
		subjects:   subjects,
		users:      users,
		roster:     roster,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		codeLength: codeLength,
		validator:  validate,
		logger:     logger,
	}
}

// List returns paginated classes.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeFailure(err, "failed to list classes")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classes, pagination, nil
}

// Get returns class by identifier.
func (s *ClassService) Get(ctx context.Context, id int64) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeFailure(err, "failed to load class")
	}
	return class, nil
}

// Create adds a new class under a subject, taught by a teacher-role user.
// The invite code is generated server-side and retried on collision until a
// unique one lands.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	capacity := models.DefaultClassCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	if capacity <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must be a positive integer")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, storeFailure(err, "failed to load subject")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, storeFailure(err, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assigned user does not have the teacher role")
	}

	class := &models.Class{
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		Name:      req.Name,
		Capacity:  capacity,
		Banner:    req.Banner,
		Status:    models.ClassStatusActive,
		Schedules: req.Schedules,
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := s.generateInviteCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate invite code")
		}
		class.InviteCode = code

		err = s.repo.Create(ctx, class)
		if err == nil {
			return class, nil
		}
		if errors.Is(err, repository.ErrDuplicateInvite) {
			continue
		}
		if errors.Is(err, repository.ErrMissingParent) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject or teacher not found")
		}
		return nil, storeFailure(err, "failed to create class")
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "could not allocate a unique invite code")
}

// Update modifies the mutable fields of a class.
func (s *ClassService) Update(ctx context.Context, id int64, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeFailure(err, "failed to load class")
	}

	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must be a positive integer")
		}
		class.Capacity = *req.Capacity
	}
	class.Name = req.Name
	class.Banner = req.Banner
	if req.Schedules != nil {
		class.Schedules = req.Schedules
	}

	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, repository.ErrInvalidCapacity) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must be a positive integer")
		}
		return nil, storeFailure(err, "failed to update class")
	}
	return class, nil
}

// UpdateStatus sets the class status; enrollments are untouched.
func (s *ClassService) UpdateStatus(ctx context.Context, id int64, req UpdateClassStatusRequest) (*models.Class, error) {
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be active, inactive or archived")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeFailure(err, "failed to update class status")
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "failed to reload class")
	}
	return class, nil
}

// Delete removes a class and its enrollments in one atomic step.
func (s *ClassService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return storeFailure(err, "failed to delete class")
	}
	return nil
}

// ExportRoster renders the class roster in the requested format.
func (s *ClassService) ExportRoster(ctx context.Context, id int64, format string) ([]byte, string, error) {
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	roster, err := s.roster.ListRoster(ctx, id)
	if err != nil {
		return nil, "", storeFailure(err, "failed to load class roster")
	}

	data := export.Dataset{Headers: []string{"No", "Name", "Email", "Enrolled At"}}
	for i, entry := range roster {
		data.Rows = append(data.Rows, map[string]string{
			"No":          strconv.Itoa(i + 1),
			"Name":        entry.StudentName,
			"Email":       entry.StudentEmail,
			"Enrolled At": entry.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	switch format {
	case "csv", "":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(data, fmt.Sprintf("Roster - %s", class.Name))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *ClassService) generateInviteCode() (string, error) {
	buf := make([]byte, s.codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}
