package s3

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

func validatorDriver(api *fakeS3) *Driver {
	d := New()
	d.build = func(ctx context.Context, c *provider.AWSCredentials) (objectAPI, presignAPI, error) {
		return api, &fakePresign{}, nil
	}
	return d
}

func TestValidateCredentials(t *testing.T) {
	t.Run("all stages pass", func(t *testing.T) {
		api := &fakeS3{}
		d := validatorDriver(api)

		res := d.ValidateCredentials(context.Background(), testCredentials())
		require.True(t, res.IsValid)
		require.NotNil(t, res.StorageInfo)
		assert.Equal(t, "my-bucket", res.StorageInfo.BucketName)
		assert.Equal(t, "us-east-1", res.StorageInfo.Region)
		assert.Equal(t, []string{
			validation.PermissionRead,
			validation.PermissionWrite,
			validation.PermissionDelete,
		}, res.StorageInfo.Permissions)

		assert.Equal(t, 1, api.headBucketCalls)
		assert.Equal(t, 1, api.putCalls)
		assert.Equal(t, 1, api.deleteCalls)

		// Probe objects stay under the private validator prefix.
		probeKey := aws.ToString(api.lastPut.Key)
		assert.True(t, strings.HasPrefix(probeKey, validation.ProbePrefix), "probe key %q", probeKey)
		assert.Equal(t, probeKey, aws.ToString(api.lastDelete.Key))
	})

	t.Run("never touches initialized driver state", func(t *testing.T) {
		live := &fakeS3{}
		d := newTestDriver(t, live, &fakePresign{})
		live.headBucketCalls = 0

		scoped := &fakeS3{}
		d.build = func(ctx context.Context, c *provider.AWSCredentials) (objectAPI, presignAPI, error) {
			return scoped, &fakePresign{}, nil
		}
		res := d.ValidateCredentials(context.Background(), testCredentials())
		require.True(t, res.IsValid)

		assert.Zero(t, live.headBucketCalls, "validation must build its own client")
		assert.True(t, d.IsConfigured())
	})

	t.Run("format failure short-circuits before any probe", func(t *testing.T) {
		api := &fakeS3{}
		d := validatorDriver(api)

		creds := testCredentials()
		creds.AWS.AccessKeyID = "short"
		res := d.ValidateCredentials(context.Background(), creds)
		require.False(t, res.IsValid)
		require.NotNil(t, res.Error)
		assert.Equal(t, validation.StageClientConstruction, res.Error.Stage)
		assert.Equal(t, validation.CodeInvalidCredentials, res.Error.Code)
		assert.NotEmpty(t, res.Error.Suggestions)
		assert.Zero(t, api.headBucketCalls)
	})

	t.Run("missing bucket fails the existence check", func(t *testing.T) {
		api := &fakeS3{headBucketErr: &apiError{code: "NoSuchBucket"}}
		d := validatorDriver(api)

		res := d.ValidateCredentials(context.Background(), testCredentials())
		require.False(t, res.IsValid)
		assert.Equal(t, validation.StageExistenceCheck, res.Error.Stage)
		assert.Equal(t, validation.CodeBucketNotFound, res.Error.Code)
		assert.Zero(t, api.putCalls, "write probe must not run after a failed existence check")
	})

	t.Run("write denial stops before the delete probe", func(t *testing.T) {
		api := &fakeS3{putErr: &apiError{code: "AccessDenied"}}
		d := validatorDriver(api)

		res := d.ValidateCredentials(context.Background(), testCredentials())
		require.False(t, res.IsValid)
		assert.Equal(t, validation.StageWriteTest, res.Error.Stage)
		assert.Equal(t, validation.CodeInsufficientPermissions, res.Error.Code)
		assert.Zero(t, api.deleteCalls)
	})

	t.Run("write denial still reports the write probe latency", func(t *testing.T) {
		api := &fakeS3{stall: 5 * time.Millisecond, putErr: &apiError{code: "AccessDenied"}}
		d := validatorDriver(api)

		res := d.ValidateCredentials(context.Background(), testCredentials())
		require.False(t, res.IsValid)
		require.NotNil(t, res.Error)
		assert.Greater(t, res.Error.Latency.ExistenceCheckMS, int64(0))
		assert.Greater(t, res.Error.Latency.WriteTestMS, int64(0))
		assert.Zero(t, res.Error.Latency.DeleteTestMS, "delete probe never ran")
	})

	t.Run("delete denial reports the leftover probe object", func(t *testing.T) {
		api := &fakeS3{deleteErr: &apiError{code: "AccessDenied"}}
		d := validatorDriver(api)

		res := d.ValidateCredentials(context.Background(), testCredentials())
		require.False(t, res.IsValid)
		assert.Equal(t, validation.StageDeleteTest, res.Error.Stage)
		assert.Contains(t, res.Error.Message, "was left behind")
		assert.Contains(t, res.Error.Message, validation.ProbePrefix)
	})
}
