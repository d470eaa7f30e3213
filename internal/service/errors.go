package service

import (
	"github.com/classdesk/classdesk-api/internal/repository"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

// storeFailure wraps an unexpected repository error, surfacing store
// timeouts and connection loss as retryable rather than swallowing them
// into a generic 500.
func storeFailure(err error, message string) *appErrors.Error {
	if repository.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
