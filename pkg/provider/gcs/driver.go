// Package gcs implements the storage driver for Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

// DefaultMaxKeys caps ListObjects results when the caller passes zero.
const DefaultMaxKeys = 1000

// Driver implements provider.Driver against the GCS client library.
type Driver struct {
	client *gstorage.Client
	bucket string

	configured bool
}

var _ provider.Driver = (*Driver)(nil)

// New creates an uninitialized GCS driver.
func New() *Driver {
	return &Driver{}
}

// Provider identifies this driver as the GCP one.
func (d *Driver) Provider() provider.ProviderType {
	return provider.ProviderGCP
}

// Initialize opens a GCS client from the service-account key and probes the
// bucket attributes.
func (d *Driver) Initialize(ctx context.Context, creds provider.Credentials) error {
	d.reset()

	c, err := gcpCredentials(creds)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, c)
	if err != nil {
		return &provider.ProviderError{Op: "Initialize", Provider: provider.ProviderGCP, Bucket: c.Bucket, Err: err}
	}

	if _, err := client.Bucket(c.Bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return wrapError("Initialize", c.Bucket, "", err)
	}

	d.client = client
	d.bucket = c.Bucket
	d.configured = true
	return nil
}

func (d *Driver) reset() {
	if d.client != nil {
		_ = d.client.Close()
	}
	d.client = nil
	d.bucket = ""
	d.configured = false
}

// IsConfigured reports whether the last Initialize succeeded.
func (d *Driver) IsConfigured() bool {
	return d.configured
}

func (d *Driver) ensureConfigured(op string) error {
	if !d.configured {
		return &provider.ProviderError{Op: op, Provider: provider.ProviderGCP, Err: provider.ErrNotConfigured}
	}
	return nil
}

// Upload streams the local temp file through an object writer.
func (d *Driver) Upload(ctx context.Context, in provider.UploadInput) (*provider.UploadResult, error) {
	if err := d.ensureConfigured("Upload"); err != nil {
		return nil, err
	}

	f, err := os.Open(in.LocalPath)
	if err != nil {
		return nil, &provider.ProviderError{Op: "Upload", Provider: provider.ProviderGCP, Bucket: d.bucket, Key: in.Key,
			Err: fmt.Errorf("open temp file: %w", err)}
	}
	defer func() { _ = f.Close() }()

	obj := d.client.Bucket(d.bucket).Object(in.Key)
	w := obj.NewWriter(ctx)
	w.ContentType = in.ContentType
	w.Metadata = uploadMetadata(in.Metadata)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return nil, wrapError("Upload", d.bucket, in.Key, err)
	}
	if err := w.Close(); err != nil {
		return nil, wrapError("Upload", d.bucket, in.Key, err)
	}

	attrs := w.Attrs()
	result := &provider.UploadResult{
		FileURL:          fmt.Sprintf("https://storage.googleapis.com/%s/%s", d.bucket, in.Key),
		Key:              in.Key,
		ProviderMetadata: map[string]string{},
	}
	if attrs != nil {
		result.ProviderMetadata["generation"] = fmt.Sprintf("%d", attrs.Generation)
		if attrs.Etag != "" {
			result.ProviderMetadata["etag"] = attrs.Etag
		}
	}
	return result, nil
}

// GetDownloadURL returns a V4 signed GET URL for key.
func (d *Driver) GetDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if err := d.ensureConfigured("GetDownloadURL"); err != nil {
		return "", err
	}
	if expiresIn <= 0 {
		expiresIn = provider.DefaultDownloadExpiry
	}

	u, err := d.client.Bucket(d.bucket).SignedURL(key, &gstorage.SignedURLOptions{
		Scheme:  gstorage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiresIn),
	})
	if err != nil {
		return "", wrapError("GetDownloadURL", d.bucket, key, err)
	}
	return u, nil
}

// DeleteObject removes a single object.
func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	if err := d.ensureConfigured("DeleteObject"); err != nil {
		return err
	}
	if err := d.client.Bucket(d.bucket).Object(key).Delete(ctx); err != nil {
		return wrapError("DeleteObject", d.bucket, key, err)
	}
	return nil
}

// CreateFolder writes a zero-byte marker object at path with a trailing
// slash.
func (d *Driver) CreateFolder(ctx context.Context, path string) (*provider.FolderResult, error) {
	if err := d.ensureConfigured("CreateFolder"); err != nil {
		return nil, err
	}

	resolved := folderPath(path)
	w := d.client.Bucket(d.bucket).Object(resolved).NewWriter(ctx)
	if err := w.Close(); err != nil {
		return nil, wrapError("CreateFolder", d.bucket, resolved, err)
	}
	return &provider.FolderResult{Path: resolved}, nil
}

// ListObjects iterates the bucket until MaxKeys results are collected or the
// iterator is exhausted.
func (d *Driver) ListObjects(ctx context.Context, in provider.ListInput) (*provider.ListResult, error) {
	if err := d.ensureConfigured("ListObjects"); err != nil {
		return nil, err
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	result := &provider.ListResult{}
	it := d.client.Bucket(d.bucket).Objects(ctx, &gstorage.Query{Prefix: in.Prefix})
	for len(result.Objects) < maxKeys {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapError("ListObjects", d.bucket, in.Prefix, err)
		}
		result.Objects = append(result.Objects, provider.ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			ETag:         attrs.Etag,
			LastModified: attrs.Updated,
		})
	}
	return result, nil
}

// CopyObject performs a server-side copy within the bucket. With
// ReplaceMetadata set, the copier's metadata overrides the source's;
// otherwise source attributes carry over.
func (d *Driver) CopyObject(ctx context.Context, in provider.CopyInput) error {
	if err := d.ensureConfigured("CopyObject"); err != nil {
		return err
	}

	bucket := d.client.Bucket(d.bucket)
	copier := bucket.Object(in.To).CopierFrom(bucket.Object(in.From))
	if in.ReplaceMetadata {
		copier.Metadata = in.Metadata
	}
	if _, err := copier.Run(ctx); err != nil {
		return wrapError("CopyObject", d.bucket, in.From, err)
	}
	return nil
}

// MoveObject is copy-then-delete. A failed source delete after a successful
// copy returns a *provider.MoveError.
func (d *Driver) MoveObject(ctx context.Context, in provider.MoveInput) error {
	if err := d.CopyObject(ctx, in.CopyInput); err != nil {
		return err
	}
	if err := d.client.Bucket(d.bucket).Object(in.From).Delete(ctx); err != nil {
		return &provider.MoveError{
			From:      in.From,
			To:        in.To,
			DeleteErr: wrapError("MoveObject", d.bucket, in.From, err),
		}
	}
	return nil
}

// HealthCheck probes the bucket attributes with the initialized client.
func (d *Driver) HealthCheck(ctx context.Context) bool {
	if !d.configured {
		return false
	}
	_, err := d.client.Bucket(d.bucket).Attrs(ctx)
	return err == nil
}

// Close releases the GCS client.
func (d *Driver) Close() error {
	var err error
	if d.client != nil {
		err = d.client.Close()
	}
	d.client = nil
	d.bucket = ""
	d.configured = false
	return err
}

func newClient(ctx context.Context, c *provider.GCPCredentials) (*gstorage.Client, error) {
	return gstorage.NewClient(ctx, option.WithCredentialsJSON([]byte(c.ServiceAccountJSON)))
}

func gcpCredentials(creds provider.Credentials) (*provider.GCPCredentials, error) {
	if creds.Provider != provider.ProviderGCP || creds.GCP == nil {
		return nil, &provider.CredentialError{Provider: creds.Provider, Message: "gcp credentials required"}
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds.GCP, nil
}

func uploadMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["upload-timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return out
}

func folderPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

// wrapError converts client library errors to provider errors with the
// matching sentinel.
func wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderGCP,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	switch {
	case errors.Is(err, gstorage.ErrObjectNotExist):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.Is(err, gstorage.ErrBucketNotExist):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			wrapped.Err = provider.ErrInvalidCredentials
		case 403:
			wrapped.Err = provider.ErrAccessDenied
		case 404:
			wrapped.Err = provider.ErrNotFound
		case 429:
			wrapped.Err = provider.ErrThrottled
		case 500, 503:
			wrapped.Err = provider.ErrProviderUnavailable
		}
	}
	return wrapped
}
