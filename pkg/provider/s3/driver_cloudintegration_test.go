//go:build cloudintegration

package s3

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/test/cloudtest"
)

func TestDriverAgainstMoto(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	creds := cloudtest.Credentials(bucket)

	d := New()
	require.NoError(t, d.Initialize(ctx, creds))
	t.Cleanup(func() { _ = d.Close() })

	staged := filepath.Join(t.TempDir(), "staged.txt")
	require.NoError(t, os.WriteFile(staged, []byte("integration content"), 0o644))

	res, err := d.Upload(ctx, provider.UploadInput{
		LocalPath:   staged,
		Key:         "docs/a.txt",
		ContentType: "text/plain",
		Metadata:    map[string]string{"owner": "u-123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", res.Key)

	t.Run("download url serves the content", func(t *testing.T) {
		u, err := d.GetDownloadURL(ctx, "docs/a.txt", time.Minute)
		require.NoError(t, err)

		resp, err := http.Get(u)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("list sees the upload", func(t *testing.T) {
		listed, err := d.ListObjects(ctx, provider.ListInput{Prefix: "docs/"})
		require.NoError(t, err)
		assert.Contains(t, listed.Keys(), "docs/a.txt")
	})

	t.Run("copy move delete round trip", func(t *testing.T) {
		require.NoError(t, d.CopyObject(ctx, provider.CopyInput{From: "docs/a.txt", To: "docs/b.txt"}))
		require.NoError(t, d.MoveObject(ctx, provider.MoveInput{
			CopyInput: provider.CopyInput{From: "docs/b.txt", To: "docs/c.txt"},
		}))

		err := d.DeleteObject(ctx, "docs/b.txt")
		require.Error(t, err)
		assert.True(t, provider.IsNotFound(err))

		require.NoError(t, d.DeleteObject(ctx, "docs/c.txt"))
	})

	t.Run("health check", func(t *testing.T) {
		assert.True(t, d.HealthCheck(ctx))
	})
}

func TestValidateCredentialsAgainstMoto(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		bucket := cloudtest.CreateBucket(t, ctx)
		d := New()
		res := d.ValidateCredentials(ctx, cloudtest.Credentials(bucket))
		require.True(t, res.IsValid, "diagnostic: %+v", res.Error)
		assert.Equal(t, bucket, res.StorageInfo.BucketName)
	})

	t.Run("missing bucket", func(t *testing.T) {
		d := New()
		res := d.ValidateCredentials(ctx, cloudtest.Credentials("no-such-bucket-ever"))
		require.False(t, res.IsValid)
		require.NotNil(t, res.Error)
	})
}
