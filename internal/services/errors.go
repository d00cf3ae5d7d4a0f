package services

import (
	"errors"
	"fmt"

	apperrors "github.com/m11312045/pneumatic-app/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound           = errors.New("resource not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrValidationFailed   = errors.New("validation failed")

	// Not found
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptItemNotFound = errors.New("attempt item not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrStudentNotFound     = errors.New("student not found")

	// Precondition failures
	ErrAttemptNotActive     = errors.New("attempt is not in progress")
	ErrAttemptCancelled     = errors.New("attempt was cancelled")
	ErrAttemptSubmitted     = errors.New("attempt already submitted")
	ErrImageRequired        = errors.New("answer image is required")
	ErrNoQuestionsSelected  = errors.New("no questions selected")
	ErrEmptyCatalog         = errors.New("no active questions in catalog")
	ErrQuestionNotLoaded    = errors.New("attempt item has no question")
	ErrQuestionCountInvalid = errors.New("attempt has no questions")
)

// Stages reported by CollaboratorError.
const (
	StageUpload = "upload"
	StageGrade  = "grade"
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// CollaboratorError is a failed or timed-out call to object storage or the
// grader. The answer was not recorded and the question may be retried.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (ce *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", ce.Stage, ce.Err)
}

func (ce *CollaboratorError) Unwrap() error {
	return ce.Err
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func newCollaboratorError(stage string, err error) *CollaboratorError {
	return &CollaboratorError{Stage: stage, Err: err}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrAttemptItemNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}

// IsPreconditionFailed checks if an operation was attempted out of order
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed) ||
		errors.Is(err, ErrAttemptNotActive) ||
		errors.Is(err, ErrAttemptCancelled) ||
		errors.Is(err, ErrAttemptSubmitted) ||
		errors.Is(err, ErrImageRequired) ||
		errors.Is(err, ErrNoQuestionsSelected) ||
		errors.Is(err, ErrEmptyCatalog) ||
		errors.Is(err, ErrQuestionNotLoaded) ||
		errors.Is(err, ErrQuestionCountInvalid)
}

// IsCollaboratorFailure checks if an upload or grading call failed
func IsCollaboratorFailure(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}
