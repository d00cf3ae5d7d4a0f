package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Variant string `json:"variant" validate:"required,question_variant"`
	Status  string `json:"status" validate:"omitempty,attempt_status"`
	Name    string `json:"name" validate:"notblank"`
}

func TestValidator_CustomTags(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     sampleRequest
		wantErr string
	}{
		{"valid", sampleRequest{Variant: "ADVANCED", Status: "SUBMITTED", Name: "Lin"}, ""},
		{"lowercase variant", sampleRequest{Variant: "copy", Name: "Lin"}, "variant"},
		{"unknown status", sampleRequest{Variant: "TEXT", Status: "DONE", Name: "Lin"}, "status"},
		{"blank name", sampleRequest{Variant: "TEXT", Name: "   "}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errs, ok := err.(ValidationErrors)
			require.True(t, ok)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantErr, errs[0].Field)
		})
	}
}
