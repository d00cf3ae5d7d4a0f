package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("student_no", "is required", "")

	assert.Equal(t, "student_no", err.Field)
	assert.Equal(t, "is required", err.Message)
	assert.Equal(t, "validation error on field 'student_no': is required", err.Error())
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("name", "is required", nil))
	assert.Equal(t, "validation failed: name is required", errs.Error())

	errs = append(errs, ValidationError{Field: "seq", Message: "must be at least 1", Rule: "min", Value: 0})
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestToValidationErrors(t *testing.T) {
	type request struct {
		Seq  int    `validate:"min=1"`
		Name string `validate:"required"`
	}

	err := validator.New().Struct(request{})
	require.Error(t, err)

	errs := ToValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "Seq", errs[0].Field)
	assert.Equal(t, "must be at least 1", errs[0].Message)
	assert.Equal(t, "Name", errs[1].Field)
	assert.Equal(t, "is required", errs[1].Message)
}

func TestToValidationErrors_IgnoresOtherErrors(t *testing.T) {
	assert.Empty(t, ToValidationErrors(assert.AnError))
}
