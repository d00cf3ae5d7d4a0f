package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"validation", fmt.Errorf("validation failed: %w", ValidationErrors{{Field: "seq", Message: "must be at least 1"}}), KindValidation},
		{"single validation", NewValidationError("outcome", "is required", nil), KindValidation},
		{"attempt not found", ErrAttemptNotFound, KindNotFound},
		{"wrapped item not found", fmt.Errorf("%w: seq 4", ErrAttemptItemNotFound), KindNotFound},
		{"not active", ErrAttemptNotActive, KindPrecondition},
		{"image required", ErrImageRequired, KindPrecondition},
		{"collaborator", newCollaboratorError(StageGrade, context.DeadlineExceeded), KindCollaborator},
		{"other", errors.New("disk full"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestFormatError(t *testing.T) {
	assert.Nil(t, FormatError(nil))

	details := FormatError(newCollaboratorError(StageUpload, errors.New("bucket missing")))
	assert.Equal(t, "collaborator_failure", details["type"])
	assert.Equal(t, StageUpload, details["stage"])
	assert.Equal(t, "upload failed: bucket missing", details["message"])

	details = FormatError(fmt.Errorf("validation failed: %w", ValidationErrors{{Field: "name", Message: "is required"}}))
	assert.Equal(t, "validation", details["type"])
	assert.Len(t, details["errors"], 1)
}
