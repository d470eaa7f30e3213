package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	DeleteCascade(ctx context.Context, id int64) error
}

type departmentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Department, error)
}

// CreateSubjectRequest captures fields for creating subjects.
type CreateSubjectRequest struct {
	DepartmentID int64   `json:"department_id" validate:"required,gt=0"`
	Code         string  `json:"code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Description  *string `json:"description,omitempty"`
}

// UpdateSubjectRequest modifies subject fields.
type UpdateSubjectRequest struct {
	DepartmentID int64   `json:"department_id" validate:"required,gt=0"`
	Code         string  `json:"code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Description  *string `json:"description,omitempty"`
}

// SubjectService handles subject domain workflows.
type SubjectService struct {
	repo        subjectRepository
	departments departmentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, departments departmentReader, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, departments: departments, validator: validate, logger: logger}
}

// List returns paginated subjects.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeFailure(err, "failed to list subjects")
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
	return subjects, pagination, nil
}

// Get returns subject by identifier.
func (s *SubjectService) Get(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, storeFailure(err, "failed to load subject")
	}
	return subject, nil
}

// Create adds a new subject under a department.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	if _, err := s.departments.FindByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, storeFailure(err, "failed to load department")
	}

	subject := &models.Subject{
		DepartmentID: req.DepartmentID,
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:         req.Name,
		Description:  req.Description,
	}

	if err := s.repo.Create(ctx, subject); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCode):
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
		case errors.Is(err, repository.ErrMissingParent):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, storeFailure(err, "failed to create subject")
	}
	return subject, nil
}

// Update modifies an existing subject.
func (s *SubjectService) Update(ctx context.Context, id int64, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, storeFailure(err, "failed to load subject")
	}

	subject.DepartmentID = req.DepartmentID
	subject.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	subject.Name = req.Name
	subject.Description = req.Description

	if err := s.repo.Update(ctx, subject); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCode):
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
		case errors.Is(err, repository.ErrMissingParent):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, storeFailure(err, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject and cascades unconditionally to its classes and
// their enrollments in one atomic step.
func (s *SubjectService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return storeFailure(err, "failed to delete subject")
	}
	return nil
}
