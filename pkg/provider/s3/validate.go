package s3

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// validate runs the staged probe sequence: client construction, HeadBucket,
// probe-object put, probe-object delete. The first failing stage
// short-circuits the rest. The probe key lives under the private validator
// prefix so user data is never touched; the only residual side effect is a
// probe object left behind when the delete test itself fails, which the
// result reports rather than hides.
func (d *Driver) validate(ctx context.Context, creds provider.Credentials) *validation.Result {
	c, err := awsCredentials(creds)
	if err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}
	if err := provider.CheckFormat(creds); err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}

	// Always a fresh client; never the driver's initialized state.
	client, _, err := d.build(ctx, c)
	if err != nil {
		return validation.Invalid(suggest(provider.Diagnose(validation.StageClientConstruction, err)))
	}

	trace := &validation.Trace{}

	start := time.Now()
	_, err = client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.Bucket)})
	trace.Record(validation.StageExistenceCheck, time.Since(start))
	if err != nil {
		return trace.Invalid(suggest(provider.Diagnose(validation.StageExistenceCheck, wrapError("Validate", c.Bucket, "", err))))
	}
	trace.Grant(validation.PermissionRead)

	probeKey := validation.ProbeKey()

	start = time.Now()
	_, err = client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(c.Bucket),
		Key:           aws.String(probeKey),
		Body:          bytes.NewReader([]byte("probe")),
		ContentLength: aws.Int64(5),
	})
	trace.Record(validation.StageWriteTest, time.Since(start))
	if err != nil {
		return trace.Invalid(suggest(provider.Diagnose(validation.StageWriteTest, wrapError("Validate", c.Bucket, probeKey, err))))
	}
	trace.Grant(validation.PermissionWrite)

	start = time.Now()
	_, err = client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.Bucket),
		Key:    aws.String(probeKey),
	})
	trace.Record(validation.StageDeleteTest, time.Since(start))
	if err != nil {
		// The probe object remains; the diagnostic says so.
		diag := suggest(provider.Diagnose(validation.StageDeleteTest, wrapError("Validate", c.Bucket, probeKey, err)))
		diag.Message += " (probe object " + probeKey + " was left behind)"
		return trace.Invalid(diag)
	}
	trace.Grant(validation.PermissionDelete)

	return trace.Valid(c.Bucket, c.Region)
}

// suggest appends S3-specific remediation steps for the failed stage.
func suggest(diag validation.Diagnostic) validation.Diagnostic {
	switch diag.Stage {
	case validation.StageClientConstruction:
		diag.Suggestions = []string{
			"Verify the access key ID and secret access key are copied exactly, without whitespace",
			"Check the IAM user is active and the key has not been rotated or disabled",
			"Confirm the region matches the bucket's region",
		}
	case validation.StageExistenceCheck:
		diag.Suggestions = []string{
			"Check the bucket name for typos - bucket names are global and case-sensitive",
			"Confirm the bucket exists in the configured region",
			"Grant the IAM user s3:ListBucket on the bucket",
		}
	case validation.StageWriteTest:
		diag.Suggestions = []string{
			"Grant the IAM user s3:PutObject on the bucket",
			"Check bucket policies or SCPs that deny writes",
		}
	case validation.StageDeleteTest:
		diag.Suggestions = []string{
			"Grant the IAM user s3:DeleteObject on the bucket",
			"Check object lock or retention settings on the bucket",
		}
	}
	return diag
}
