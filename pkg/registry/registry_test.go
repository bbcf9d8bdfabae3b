package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// fakeDriver is a minimal in-memory Driver for registry and resolver tests.
type fakeDriver struct {
	providerType provider.ProviderType
	configured   bool
	initCount    int
	initErr      error
	lastCreds    provider.Credentials
	closed       bool
}

func (f *fakeDriver) Provider() provider.ProviderType { return f.providerType }

func (f *fakeDriver) Initialize(ctx context.Context, creds provider.Credentials) error {
	f.initCount++
	f.lastCreds = creds
	if f.initErr != nil {
		return f.initErr
	}
	f.configured = true
	return nil
}

func (f *fakeDriver) IsConfigured() bool { return f.configured }

func (f *fakeDriver) Upload(ctx context.Context, in provider.UploadInput) (*provider.UploadResult, error) {
	return &provider.UploadResult{Key: in.Key}, nil
}

func (f *fakeDriver) GetDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return "https://example.test/" + key, nil
}

func (f *fakeDriver) DeleteObject(ctx context.Context, key string) error { return nil }

func (f *fakeDriver) CreateFolder(ctx context.Context, path string) (*provider.FolderResult, error) {
	return &provider.FolderResult{Path: path}, nil
}

func (f *fakeDriver) ListObjects(ctx context.Context, in provider.ListInput) (*provider.ListResult, error) {
	return &provider.ListResult{}, nil
}

func (f *fakeDriver) CopyObject(ctx context.Context, in provider.CopyInput) error { return nil }

func (f *fakeDriver) MoveObject(ctx context.Context, in provider.MoveInput) error { return nil }

func (f *fakeDriver) ValidateCredentials(ctx context.Context, creds provider.Credentials) *validation.Result {
	return &validation.Result{IsValid: true}
}

func (f *fakeDriver) HealthCheck(ctx context.Context) bool { return f.configured }

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func TestRegistry(t *testing.T) {
	t.Run("driver returns a fresh instance per call", func(t *testing.T) {
		reg := New()
		reg.Register(provider.ProviderAWS, func() provider.Driver {
			return &fakeDriver{providerType: provider.ProviderAWS}
		})

		a, err := reg.Driver(provider.ProviderAWS)
		require.NoError(t, err)
		b, err := reg.Driver(provider.ProviderAWS)
		require.NoError(t, err)
		assert.NotSame(t, a, b)
	})

	t.Run("unregistered provider fails", func(t *testing.T) {
		reg := New()
		_, err := reg.Driver(provider.ProviderGCP)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrProviderNotRegistered))
	})

	t.Run("registered lists providers", func(t *testing.T) {
		reg := New()
		reg.Register(provider.ProviderAWS, func() provider.Driver { return &fakeDriver{} })
		reg.Register(provider.ProviderLocal, func() provider.Driver { return &fakeDriver{} })

		got := reg.Registered()
		assert.ElementsMatch(t, []provider.ProviderType{provider.ProviderAWS, provider.ProviderLocal}, got)
	})
}
