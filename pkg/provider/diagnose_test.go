package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

func TestDiagnoseClassifiedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want validation.Code
	}{
		{"invalid credentials", fmt.Errorf("wrap: %w", ErrInvalidCredentials), validation.CodeInvalidCredentials},
		{"bucket not found", fmt.Errorf("wrap: %w", ErrBucketNotFound), validation.CodeBucketNotFound},
		{"access denied", fmt.Errorf("wrap: %w", ErrAccessDenied), validation.CodeInsufficientPermissions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Classification wins regardless of stage.
			for _, stage := range []validation.Stage{
				validation.StageClientConstruction,
				validation.StageExistenceCheck,
				validation.StageWriteTest,
				validation.StageDeleteTest,
			} {
				diag := Diagnose(stage, tt.err)
				assert.Equal(t, tt.want, diag.Code, "stage %s", stage)
				assert.Equal(t, stage, diag.Stage)
				assert.NotEmpty(t, diag.Message)
				assert.Contains(t, diag.Details, "wrap:")
			}
		})
	}
}

func TestDiagnoseStageDefaults(t *testing.T) {
	unclassified := errors.New("connection reset by peer")

	tests := []struct {
		stage validation.Stage
		want  validation.Code
	}{
		{validation.StageClientConstruction, validation.CodeInvalidCredentials},
		{validation.StageExistenceCheck, validation.CodeBucketNotFound},
		{validation.StageWriteTest, validation.CodeInsufficientPermissions},
		{validation.StageDeleteTest, validation.CodeInsufficientPermissions},
		{validation.Stage("unknown"), validation.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			diag := Diagnose(tt.stage, unclassified)
			assert.Equal(t, tt.want, diag.Code)
			assert.Equal(t, "connection reset by peer", diag.Details)
		})
	}
}
