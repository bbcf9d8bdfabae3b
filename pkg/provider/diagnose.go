package provider

import (
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// Diagnose maps a classified driver error at a given validation stage to the
// stable diagnostic code and message the validators report. Drivers append
// their vendor-specific remediation suggestions on top.
//
// The mapping follows the stage machine: construction and authentication
// failures are credential problems, a missing bucket at the existence check
// is a resource problem, and authenticated-but-forbidden write/delete probes
// are permission problems.
func Diagnose(stage validation.Stage, err error) validation.Diagnostic {
	diag := validation.Diagnostic{Stage: stage}
	if err != nil {
		diag.Details = err.Error()
	}

	switch {
	case IsInvalidCredentials(err):
		diag.Code = validation.CodeInvalidCredentials
		diag.Message = "Authentication failed with the supplied credentials"
	case IsBucketNotFound(err):
		diag.Code = validation.CodeBucketNotFound
		diag.Message = "The configured bucket or container does not exist"
	case IsAccessDenied(err):
		diag.Code = validation.CodeInsufficientPermissions
		diag.Message = "The credentials are valid but lack a required permission"
	default:
		// Unclassified errors are credential problems during the first two
		// stages (the client never proved it can authenticate) and
		// permission problems afterwards.
		switch stage {
		case validation.StageClientConstruction:
			diag.Code = validation.CodeInvalidCredentials
			diag.Message = "Could not establish an authenticated connection"
		case validation.StageExistenceCheck:
			diag.Code = validation.CodeBucketNotFound
			diag.Message = "The configured bucket or container could not be reached"
		case validation.StageWriteTest, validation.StageDeleteTest:
			diag.Code = validation.CodeInsufficientPermissions
			diag.Message = "A probe operation was rejected"
		default:
			diag.Code = validation.CodeValidationFailed
			diag.Message = "Validation failed"
		}
	}

	return diag
}
