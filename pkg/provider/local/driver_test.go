package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

func localCreds(baseDir string) provider.Credentials {
	return provider.Credentials{
		Provider: provider.ProviderLocal,
		Local:    &provider.LocalCredentials{BaseDir: baseDir},
	}
}

func newLocalDriver(t *testing.T) (*Driver, string) {
	t.Helper()
	base := t.TempDir()
	d := New()
	require.NoError(t, d.Initialize(context.Background(), localCreds(base)))
	return d, base
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitialize(t *testing.T) {
	t.Run("missing base dir", func(t *testing.T) {
		d := New()
		err := d.Initialize(context.Background(), localCreds(filepath.Join(t.TempDir(), "absent")))
		require.Error(t, err)
		assert.True(t, provider.IsNotFound(err))
		assert.False(t, d.IsConfigured())
	})

	t.Run("base dir is a file", func(t *testing.T) {
		path := writeTemp(t, "x")
		d := New()
		err := d.Initialize(context.Background(), localCreds(path))
		require.Error(t, err)
		assert.False(t, d.IsConfigured())
	})

	t.Run("mismatched credentials", func(t *testing.T) {
		d := New()
		err := d.Initialize(context.Background(), provider.Credentials{Provider: provider.ProviderAWS})
		require.Error(t, err)
	})
}

func TestUploadAndDownloadURL(t *testing.T) {
	d, base := newLocalDriver(t)
	ctx := context.Background()

	res, err := d.Upload(ctx, provider.UploadInput{
		LocalPath: writeTemp(t, "hello world"),
		Key:       "docs/a.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", res.Key)
	assert.Equal(t, "11", res.ProviderMetadata["size"])

	got, err := os.ReadFile(filepath.Join(base, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	u, err := d.GetDownloadURL(ctx, "docs/a.txt", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"), "got %q", u)

	_, err = d.GetDownloadURL(ctx, "docs/missing.txt", 0)
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))

	t.Run("no stale temp files remain", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(base, "docs"))
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), "imaginestorage-put-"), "leftover %s", e.Name())
		}
	})
}

func TestTraversalRejected(t *testing.T) {
	d, _ := newLocalDriver(t)
	ctx := context.Background()

	_, err := d.Upload(ctx, provider.UploadInput{LocalPath: writeTemp(t, "x"), Key: "../escape.txt"})
	require.Error(t, err)

	err = d.DeleteObject(ctx, "../../etc/passwd")
	require.Error(t, err)
}

func TestDeleteObject(t *testing.T) {
	d, _ := newLocalDriver(t)
	ctx := context.Background()

	_, err := d.Upload(ctx, provider.UploadInput{LocalPath: writeTemp(t, "x"), Key: "a.txt"})
	require.NoError(t, err)

	require.NoError(t, d.DeleteObject(ctx, "a.txt"))

	err = d.DeleteObject(ctx, "a.txt")
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestCreateFolder(t *testing.T) {
	d, base := newLocalDriver(t)
	ctx := context.Background()

	res, err := d.CreateFolder(ctx, "docs/reports")
	require.NoError(t, err)
	assert.Equal(t, "docs/reports/", res.Path)

	st, err := os.Stat(filepath.Join(base, "docs", "reports"))
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	// Idempotent.
	_, err = d.CreateFolder(ctx, "docs/reports/")
	require.NoError(t, err)
}

func TestListObjects(t *testing.T) {
	d, _ := newLocalDriver(t)
	ctx := context.Background()

	for _, key := range []string{"docs/b.txt", "docs/a.txt", "docs/sub/c.txt", "other/d.txt"} {
		_, err := d.Upload(ctx, provider.UploadInput{LocalPath: writeTemp(t, key), Key: key})
		require.NoError(t, err)
	}

	t.Run("prefix filter with sorted keys", func(t *testing.T) {
		res, err := d.ListObjects(ctx, provider.ListInput{Prefix: "docs/"})
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt", "docs/b.txt", "docs/sub/c.txt"}, res.Keys())
		for _, o := range res.Objects {
			assert.Equal(t, int64(len(o.Key)), o.Size)
		}
	})

	t.Run("partial segment prefix matches like the cloud drivers", func(t *testing.T) {
		res, err := d.ListObjects(ctx, provider.ListInput{Prefix: "docs/s"})
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/sub/c.txt"}, res.Keys())

		res, err = d.ListObjects(ctx, provider.ListInput{Prefix: "doc"})
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt", "docs/b.txt", "docs/sub/c.txt"}, res.Keys())
	})

	t.Run("max keys caps results", func(t *testing.T) {
		res, err := d.ListObjects(ctx, provider.ListInput{Prefix: "docs/", MaxKeys: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt", "docs/b.txt"}, res.Keys())
	})

	t.Run("unknown prefix is empty, not an error", func(t *testing.T) {
		res, err := d.ListObjects(ctx, provider.ListInput{Prefix: "nope/"})
		require.NoError(t, err)
		assert.Empty(t, res.Objects)
	})
}

func TestCopyObject(t *testing.T) {
	d, base := newLocalDriver(t)
	ctx := context.Background()

	_, err := d.Upload(ctx, provider.UploadInput{LocalPath: writeTemp(t, "content"), Key: "src.txt"})
	require.NoError(t, err)

	require.NoError(t, d.CopyObject(ctx, provider.CopyInput{From: "src.txt", To: "deep/dst.txt"}))

	got, err := os.ReadFile(filepath.Join(base, "deep", "dst.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(got))

	// Source untouched.
	_, err = os.Stat(filepath.Join(base, "src.txt"))
	require.NoError(t, err)

	t.Run("missing source", func(t *testing.T) {
		err := d.CopyObject(ctx, provider.CopyInput{From: "absent.txt", To: "x.txt"})
		require.Error(t, err)
		assert.True(t, provider.IsNotFound(err))
	})
}

func TestMoveObject(t *testing.T) {
	d, base := newLocalDriver(t)
	ctx := context.Background()

	_, err := d.Upload(ctx, provider.UploadInput{LocalPath: writeTemp(t, "content"), Key: "src.txt"})
	require.NoError(t, err)

	require.NoError(t, d.MoveObject(ctx, provider.MoveInput{
		CopyInput: provider.CopyInput{From: "src.txt", To: "dst.txt"},
	}))

	_, err = os.Stat(filepath.Join(base, "src.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "dst.txt"))
	require.NoError(t, err)

	t.Run("missing source is not a partial move", func(t *testing.T) {
		err := d.MoveObject(ctx, provider.MoveInput{
			CopyInput: provider.CopyInput{From: "absent.txt", To: "y.txt"},
		})
		require.Error(t, err)
		assert.False(t, provider.IsPartialMove(err))
	})
}

func TestOperationsRequireInitialize(t *testing.T) {
	d := New()
	ctx := context.Background()

	_, err := d.Upload(ctx, provider.UploadInput{LocalPath: "/tmp/x", Key: "k"})
	assert.True(t, provider.IsNotConfigured(err))

	_, err = d.ListObjects(ctx, provider.ListInput{})
	assert.True(t, provider.IsNotConfigured(err))

	assert.False(t, d.HealthCheck(ctx))
}

func TestHealthCheck(t *testing.T) {
	d, base := newLocalDriver(t)
	assert.True(t, d.HealthCheck(context.Background()))

	require.NoError(t, os.RemoveAll(base))
	assert.False(t, d.HealthCheck(context.Background()))
}

func TestValidateCredentials(t *testing.T) {
	d := New()
	ctx := context.Background()

	t.Run("all stages pass", func(t *testing.T) {
		base := t.TempDir()
		res := d.ValidateCredentials(ctx, localCreds(base))
		require.True(t, res.IsValid)
		require.NotNil(t, res.StorageInfo)
		assert.Equal(t, base, res.StorageInfo.BucketName)
		assert.Equal(t, []string{
			validation.PermissionRead,
			validation.PermissionWrite,
			validation.PermissionDelete,
		}, res.StorageInfo.Permissions)

		// Probe cleanup leaves no file behind under the validator prefix.
		_, err := os.Stat(filepath.Join(base, ".imaginary"))
		if err == nil {
			entries, rerr := os.ReadDir(filepath.Join(base, ".imaginary", "_validator"))
			require.NoError(t, rerr)
			assert.Empty(t, entries)
		}
	})

	t.Run("missing base dir fails existence check", func(t *testing.T) {
		res := d.ValidateCredentials(ctx, localCreds(filepath.Join(t.TempDir(), "absent")))
		require.False(t, res.IsValid)
		require.NotNil(t, res.Error)
		assert.Equal(t, validation.StageExistenceCheck, res.Error.Stage)
	})

	t.Run("write failure reports stage and recorded latencies", func(t *testing.T) {
		base := t.TempDir()
		// A file where the probe directory should go makes the write probe
		// fail while the existence check still passes.
		require.NoError(t, os.WriteFile(filepath.Join(base, ".imaginary"), []byte("x"), 0o644))

		res := d.ValidateCredentials(ctx, localCreds(base))
		require.False(t, res.IsValid)
		require.NotNil(t, res.Error)
		assert.Equal(t, validation.StageWriteTest, res.Error.Stage)
		assert.Zero(t, res.Error.Latency.DeleteTestMS, "delete probe never ran")
	})

	t.Run("wrong vendor fails client construction", func(t *testing.T) {
		res := d.ValidateCredentials(ctx, provider.Credentials{Provider: provider.ProviderGCP})
		require.False(t, res.IsValid)
		assert.Equal(t, validation.StageClientConstruction, res.Error.Stage)
	})
}
