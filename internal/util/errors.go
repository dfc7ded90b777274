package util

import (
	"errors"
	"fmt"
)

var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrSubmissionNotFound  = errors.New("homework submission not found")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrLessonLocked        = errors.New("lesson is locked")

	// ErrCertificateConflict reports an insert rejected by a uniqueness
	// constraint on certificates.
	ErrCertificateConflict = errors.New("certificate already exists")

	ErrValidation = errors.New("validation failed")
)

// ValidationError describes malformed input to a mutation. Nothing is written
// when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrLessonNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrCertificateNotFound)
}
