// Package azure implements the storage driver for Azure Blob Storage.
package azure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

// DefaultMaxKeys caps ListObjects results when the caller passes zero.
const DefaultMaxKeys = 1000

// copySourceExpiry bounds the read SAS minted for server-side copy sources.
const copySourceExpiry = 10 * time.Minute

// Driver implements provider.Driver against the azblob SDK using shared-key
// credentials.
type Driver struct {
	client    *azblob.Client
	container string

	configured bool
}

var _ provider.Driver = (*Driver)(nil)

// New creates an uninitialized Azure driver.
func New() *Driver {
	return &Driver{}
}

// Provider identifies this driver as the Azure one.
func (d *Driver) Provider() provider.ProviderType {
	return provider.ProviderAzure
}

// Initialize builds a shared-key service client and probes the container.
func (d *Driver) Initialize(ctx context.Context, creds provider.Credentials) error {
	d.reset()

	c, err := azureCredentials(creds)
	if err != nil {
		return err
	}

	client, err := newClient(c)
	if err != nil {
		return &provider.ProviderError{Op: "Initialize", Provider: provider.ProviderAzure, Bucket: c.Container, Err: err}
	}

	if _, err := client.ServiceClient().NewContainerClient(c.Container).GetProperties(ctx, nil); err != nil {
		return wrapError("Initialize", c.Container, "", err)
	}

	d.client = client
	d.container = c.Container
	d.configured = true
	return nil
}

func (d *Driver) reset() {
	d.client = nil
	d.container = ""
	d.configured = false
}

// IsConfigured reports whether the last Initialize succeeded.
func (d *Driver) IsConfigured() bool {
	return d.configured
}

func (d *Driver) ensureConfigured(op string) error {
	if !d.configured {
		return &provider.ProviderError{Op: op, Provider: provider.ProviderAzure, Err: provider.ErrNotConfigured}
	}
	return nil
}

// Upload streams the local temp file to a block blob.
func (d *Driver) Upload(ctx context.Context, in provider.UploadInput) (*provider.UploadResult, error) {
	if err := d.ensureConfigured("Upload"); err != nil {
		return nil, err
	}

	f, err := os.Open(in.LocalPath)
	if err != nil {
		return nil, &provider.ProviderError{Op: "Upload", Provider: provider.ProviderAzure, Bucket: d.container, Key: in.Key,
			Err: fmt.Errorf("open temp file: %w", err)}
	}
	defer func() { _ = f.Close() }()

	opts := &azblob.UploadFileOptions{
		Metadata: uploadMetadata(in.Metadata),
	}
	if in.ContentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &in.ContentType}
	}

	resp, err := d.client.UploadFile(ctx, d.container, in.Key, f, opts)
	if err != nil {
		return nil, wrapError("Upload", d.container, in.Key, err)
	}

	result := &provider.UploadResult{
		FileURL:          d.blobURL(in.Key),
		Key:              in.Key,
		ProviderMetadata: map[string]string{},
	}
	if resp.ETag != nil {
		result.ProviderMetadata["etag"] = string(*resp.ETag)
	}
	return result, nil
}

// GetDownloadURL mints a read-only SAS URL on the blob.
func (d *Driver) GetDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if err := d.ensureConfigured("GetDownloadURL"); err != nil {
		return "", err
	}
	if expiresIn <= 0 {
		expiresIn = provider.DefaultDownloadExpiry
	}

	u, err := d.blobClient(key).GetSASURL(sas.BlobPermissions{Read: true}, time.Now().UTC().Add(expiresIn), nil)
	if err != nil {
		return "", wrapError("GetDownloadURL", d.container, key, err)
	}
	return u, nil
}

// DeleteObject removes a single blob.
func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	if err := d.ensureConfigured("DeleteObject"); err != nil {
		return err
	}
	if _, err := d.client.DeleteBlob(ctx, d.container, key, nil); err != nil {
		return wrapError("DeleteObject", d.container, key, err)
	}
	return nil
}

// CreateFolder writes a zero-byte marker blob at path with a trailing slash.
func (d *Driver) CreateFolder(ctx context.Context, path string) (*provider.FolderResult, error) {
	if err := d.ensureConfigured("CreateFolder"); err != nil {
		return nil, err
	}

	resolved := folderPath(path)
	if _, err := d.client.UploadBuffer(ctx, d.container, resolved, []byte{}, nil); err != nil {
		return nil, wrapError("CreateFolder", d.container, resolved, err)
	}
	return &provider.FolderResult{Path: resolved}, nil
}

// ListObjects walks the flat blob listing until MaxKeys results are
// collected.
func (d *Driver) ListObjects(ctx context.Context, in provider.ListInput) (*provider.ListResult, error) {
	if err := d.ensureConfigured("ListObjects"); err != nil {
		return nil, err
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	result := &provider.ListResult{}
	opts := &azblob.ListBlobsFlatOptions{}
	if in.Prefix != "" {
		opts.Prefix = &in.Prefix
	}

	pager := d.client.NewListBlobsFlatPager(d.container, opts)
	for pager.More() && len(result.Objects) < maxKeys {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapError("ListObjects", d.container, in.Prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if len(result.Objects) >= maxKeys {
				break
			}
			info := provider.ObjectInfo{}
			if item.Name != nil {
				info.Key = *item.Name
			}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
				if item.Properties.ETag != nil {
					info.ETag = string(*item.Properties.ETag)
				}
				if item.Properties.LastModified != nil {
					info.LastModified = *item.Properties.LastModified
				}
			}
			result.Objects = append(result.Objects, info)
		}
	}
	return result, nil
}

// CopyObject performs a server-side copy within the container. The source is
// addressed by a short-lived read SAS so the service can fetch it. With
// ReplaceMetadata set, the copy's metadata overrides the source's; otherwise
// the service carries the source metadata over.
func (d *Driver) CopyObject(ctx context.Context, in provider.CopyInput) error {
	if err := d.ensureConfigured("CopyObject"); err != nil {
		return err
	}

	srcURL, err := d.blobClient(in.From).GetSASURL(sas.BlobPermissions{Read: true}, time.Now().UTC().Add(copySourceExpiry), nil)
	if err != nil {
		return wrapError("CopyObject", d.container, in.From, err)
	}

	var opts *blob.CopyFromURLOptions
	if in.ReplaceMetadata {
		opts = &blob.CopyFromURLOptions{Metadata: toAzureMetadata(in.Metadata)}
	}
	if _, err := d.blobClient(in.To).CopyFromURL(ctx, srcURL, opts); err != nil {
		return wrapError("CopyObject", d.container, in.From, err)
	}
	return nil
}

// MoveObject is copy-then-delete. A failed source delete after a successful
// copy returns a *provider.MoveError.
func (d *Driver) MoveObject(ctx context.Context, in provider.MoveInput) error {
	if err := d.CopyObject(ctx, in.CopyInput); err != nil {
		return err
	}
	if _, err := d.client.DeleteBlob(ctx, d.container, in.From, nil); err != nil {
		return &provider.MoveError{
			From:      in.From,
			To:        in.To,
			DeleteErr: wrapError("MoveObject", d.container, in.From, err),
		}
	}
	return nil
}

// HealthCheck probes the container properties with the initialized client.
func (d *Driver) HealthCheck(ctx context.Context) bool {
	if !d.configured {
		return false
	}
	_, err := d.client.ServiceClient().NewContainerClient(d.container).GetProperties(ctx, nil)
	return err == nil
}

// Close drops the client. The azblob client holds no resources that need
// explicit release.
func (d *Driver) Close() error {
	d.reset()
	return nil
}

func (d *Driver) blobClient(key string) *blob.Client {
	return d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(key)
}

func (d *Driver) blobURL(key string) string {
	return d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(key).URL()
}

func newClient(c *provider.AzureCredentials) (*azblob.Client, error) {
	cred, err := azblob.NewSharedKeyCredential(c.AccountName, c.AccountKey)
	if err != nil {
		return nil, err
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", c.AccountName)
	return azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
}

func azureCredentials(creds provider.Credentials) (*provider.AzureCredentials, error) {
	if creds.Provider != provider.ProviderAzure || creds.Azure == nil {
		return nil, &provider.CredentialError{Provider: creds.Provider, Message: "azure credentials required"}
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds.Azure, nil
}

// uploadMetadata stamps the upload time alongside the caller's metadata.
// Azure metadata keys must be valid identifiers, so hyphens become
// underscores.
func uploadMetadata(m map[string]string) map[string]*string {
	out := toAzureMetadata(m)
	ts := time.Now().UTC().Format(time.RFC3339)
	out["upload_timestamp"] = &ts
	return out
}

func toAzureMetadata(m map[string]string) map[string]*string {
	out := make(map[string]*string, len(m)+1)
	for k, v := range m {
		v := v
		out[strings.ReplaceAll(k, "-", "_")] = &v
	}
	return out
}

func folderPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

// wrapError converts azblob errors to provider errors with the matching
// sentinel.
func wrapError(op, container, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderAzure,
		Bucket:   container,
		Key:      key,
		Err:      err,
	}

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		wrapped.Err = provider.ErrNotFound
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		wrapped.Err = provider.ErrBucketNotFound
	case bloberror.HasCode(err, bloberror.AuthenticationFailed, bloberror.InvalidAuthenticationInfo):
		wrapped.Err = provider.ErrInvalidCredentials
	case bloberror.HasCode(err, bloberror.AuthorizationFailure, bloberror.InsufficientAccountPermissions):
		wrapped.Err = provider.ErrAccessDenied
	case bloberror.HasCode(err, bloberror.ServerBusy):
		wrapped.Err = provider.ErrThrottled
	default:
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			switch respErr.StatusCode {
			case 401:
				wrapped.Err = provider.ErrInvalidCredentials
			case 403:
				wrapped.Err = provider.ErrAccessDenied
			case 404:
				wrapped.Err = provider.ErrNotFound
			case 503:
				wrapped.Err = provider.ErrProviderUnavailable
			}
		}
	}
	return wrapped
}
