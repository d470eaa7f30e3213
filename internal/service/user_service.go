package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	DeleteCascade(ctx context.Context, id string) error
}

type teacherClassCounter interface {
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
}

// UserService provides account-level operations on identity records.
type UserService struct {
	repo    userStore
	classes teacherClassCounter
	logger  *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userStore, classes teacherClassCounter, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, classes: classes, logger: logger}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storeFailure(err, "failed to load user")
	}
	return user, nil
}

// Delete removes a user together with their enrollments, sessions and linked
// accounts. A user still listed as a class teacher cannot be deleted; the
// store enforces the same rule inside the transaction, so the pre-check only
// improves the error message.
func (s *UserService) Delete(ctx context.Context, id string) error {
	taught, err := s.classes.CountByTeacher(ctx, id)
	if err != nil {
		return storeFailure(err, "failed to count taught classes")
	}
	if taught > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "user still teaches one or more classes")
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		case errors.Is(err, repository.ErrRestricted):
			return appErrors.Clone(appErrors.ErrConflict, "user still teaches one or more classes")
		}
		return storeFailure(err, "failed to delete user")
	}

	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}
