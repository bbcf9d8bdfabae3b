package azure

import (
	"context"
	"time"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// ValidateCredentials runs the staged probe sequence on a fresh client,
// independent of the driver's initialized state.
func (d *Driver) ValidateCredentials(ctx context.Context, creds provider.Credentials) *validation.Result {
	c, err := azureCredentials(creds)
	if err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}
	if err := provider.CheckFormat(creds); err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}

	// Fresh client every time, and never stored on the driver.
	client, err := newClient(c)
	if err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}

	containerClient := client.ServiceClient().NewContainerClient(c.Container)
	trace := &validation.Trace{}

	start := time.Now()
	_, err = containerClient.GetProperties(ctx, nil)
	trace.Record(validation.StageExistenceCheck, time.Since(start))
	if err != nil {
		return trace.Invalid(suggest(provider.Diagnose(validation.StageExistenceCheck, wrapError("Validate", c.Container, "", err))))
	}
	trace.Grant(validation.PermissionRead)

	probeKey := validation.ProbeKey()

	start = time.Now()
	_, err = client.UploadBuffer(ctx, c.Container, probeKey, []byte("probe"), nil)
	trace.Record(validation.StageWriteTest, time.Since(start))
	if err != nil {
		return trace.Invalid(suggest(provider.Diagnose(validation.StageWriteTest, wrapError("Validate", c.Container, probeKey, err))))
	}
	trace.Grant(validation.PermissionWrite)

	start = time.Now()
	_, err = client.DeleteBlob(ctx, c.Container, probeKey, nil)
	trace.Record(validation.StageDeleteTest, time.Since(start))
	if err != nil {
		diag := suggest(provider.Diagnose(validation.StageDeleteTest, wrapError("Validate", c.Container, probeKey, err)))
		diag.Message += " (probe object " + probeKey + " was left behind)"
		return trace.Invalid(diag)
	}
	trace.Grant(validation.PermissionDelete)

	// Blob storage has no region on the container surface; the account's
	// location is not exposed through the data plane.
	return trace.Valid(c.Container, "")
}

// suggest appends Azure-specific remediation steps for the failed stage.
func suggest(diag validation.Diagnostic) validation.Diagnostic {
	switch diag.Stage {
	case validation.StageClientConstruction:
		diag.Suggestions = []string{
			"Check the storage account name and account key are copied exactly",
			"Confirm the key has not been rotated in the Azure portal",
		}
	case validation.StageExistenceCheck:
		diag.Suggestions = []string{
			"Check the container name for typos - container names are lowercase",
			"Confirm the container exists in this storage account",
		}
	case validation.StageWriteTest:
		diag.Suggestions = []string{
			"Shared-key access may be disabled on the account; check AllowSharedKeyAccess",
			"Check for immutability policies on the container",
		}
	case validation.StageDeleteTest:
		diag.Suggestions = []string{
			"Check legal holds or retention policies on the container",
			"Soft-delete settings do not block deletes, but immutability policies do",
		}
	}
	return diag
}
