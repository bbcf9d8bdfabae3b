package gcs

import (
	"context"
	"time"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// ValidateCredentials runs the staged probe sequence on a fresh client,
// independent of the driver's initialized state.
func (d *Driver) ValidateCredentials(ctx context.Context, creds provider.Credentials) *validation.Result {
	c, err := gcpCredentials(creds)
	if err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}
	if err := provider.CheckFormat(creds); err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}

	// Fresh client every time, and never stored on the driver.
	client, err := newClient(ctx, c)
	if err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}
	defer func() { _ = client.Close() }()

	bucket := client.Bucket(c.Bucket)
	trace := &validation.Trace{}

	start := time.Now()
	attrs, err := bucket.Attrs(ctx)
	trace.Record(validation.StageExistenceCheck, time.Since(start))
	if err != nil {
		return trace.Invalid(suggest(provider.Diagnose(validation.StageExistenceCheck, wrapError("Validate", c.Bucket, "", err))))
	}
	trace.Grant(validation.PermissionRead)

	probeKey := validation.ProbeKey()

	start = time.Now()
	w := bucket.Object(probeKey).NewWriter(ctx)
	_, werr := w.Write([]byte("probe"))
	cerr := w.Close()
	if werr == nil {
		werr = cerr
	}
	trace.Record(validation.StageWriteTest, time.Since(start))
	if werr != nil {
		return trace.Invalid(suggest(provider.Diagnose(validation.StageWriteTest, wrapError("Validate", c.Bucket, probeKey, werr))))
	}
	trace.Grant(validation.PermissionWrite)

	start = time.Now()
	err = bucket.Object(probeKey).Delete(ctx)
	trace.Record(validation.StageDeleteTest, time.Since(start))
	if err != nil {
		diag := suggest(provider.Diagnose(validation.StageDeleteTest, wrapError("Validate", c.Bucket, probeKey, err)))
		diag.Message += " (probe object " + probeKey + " was left behind)"
		return trace.Invalid(diag)
	}
	trace.Grant(validation.PermissionDelete)

	region := ""
	if attrs != nil {
		region = attrs.Location
	}
	return trace.Valid(c.Bucket, region)
}

// suggest appends GCS-specific remediation steps for the failed stage.
func suggest(diag validation.Diagnostic) validation.Diagnostic {
	switch diag.Stage {
	case validation.StageClientConstruction:
		diag.Suggestions = []string{
			"Check the service account JSON is complete and pasted without truncation",
			"Confirm the service account has not been deleted or disabled",
		}
	case validation.StageExistenceCheck:
		diag.Suggestions = []string{
			"Check the bucket name for typos",
			"Grant the service account storage.buckets.get on the bucket",
			"Confirm the bucket belongs to the configured project",
		}
	case validation.StageWriteTest:
		diag.Suggestions = []string{
			"Grant the service account storage.objects.create on the bucket",
			"Roles/storage.objectAdmin covers both writes and deletes",
		}
	case validation.StageDeleteTest:
		diag.Suggestions = []string{
			"Grant the service account storage.objects.delete on the bucket",
			"Check retention policies or object holds on the bucket",
		}
	}
	return diag
}
