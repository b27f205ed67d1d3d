package service

import (
	"errors"
	"fmt"

	"requestflow/internal/repository"
	"requestflow/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("invalid credentials")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRequestClosed is returned when a decision targets an Approved or Rejected request.
	ErrRequestClosed = errors.New("request is already closed")
)

// SubmissionIncompleteError reports a submission that committed some steps
// before failing. The run can be continued with ResumeSubmission.
type SubmissionIncompleteError struct {
	RunID uuid.UUID
	Step  string
	Err   error
}

func (e *SubmissionIncompleteError) Error() string {
	return fmt.Sprintf("submission %s stopped at step %q: %v", e.RunID, e.Step, e.Err)
}

func (e *SubmissionIncompleteError) Unwrap() error {
	return e.Err
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr maps repository failures onto service errors, keeping the cause.
func storeErr(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err), errors.Is(err, storage.ErrFileNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, repository.ErrStaleVersion), errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%s: %w: %v", what, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// isClientError reports errors caused by the input rather than the store.
func isClientError(err error) bool {
	for _, target := range []error{ErrNotFound, ErrValidation, ErrConflict, ErrForbidden, ErrInvalidTransition} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
