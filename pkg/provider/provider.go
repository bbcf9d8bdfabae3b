// Package provider defines the capability contract shared by all cloud
// storage drivers.
//
// A Driver is an explicit stateful object scoped to one resolution:
// construct, Initialize with one user's credentials, use, discard. Driver
// instances hold a live vendor client and are not safe for use with two
// different users' credentials at once - the resolver re-initializes a fresh
// driver on every call for exactly that reason.
package provider

import (
	"context"
	"time"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// DefaultDownloadExpiry is the signed-URL lifetime applied when the caller
// passes a zero expiry to GetDownloadURL.
const DefaultDownloadExpiry = 3600 * time.Second

// Driver abstracts single-object storage operations for one vendor.
//
// Every method that touches the network may block; callers apply their own
// timeouts through ctx. No method other than Initialize and
// ValidateCredentials may be called before a successful Initialize -
// implementations fail fast with ErrNotConfigured otherwise.
type Driver interface {
	// Initialize opens a vendor client from the given credentials and runs a
	// cheap existence probe against the configured bucket/container.
	// Re-initializing with new credentials fully replaces prior state.
	Initialize(ctx context.Context, creds Credentials) error

	// IsConfigured reports whether Initialize succeeded with all mandatory
	// fields present.
	IsConfigured() bool

	// Provider identifies the vendor this driver speaks to.
	Provider() ProviderType

	// Upload streams the file at in.LocalPath to in.Key. The caller owns the
	// temp file and deletes it after Upload returns; drivers never do.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// GetDownloadURL returns a time-limited read URL for key. A zero
	// expiresIn uses DefaultDownloadExpiry.
	GetDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// DeleteObject removes a single object. Returns ErrNotFound (wrapped)
	// when the object does not exist.
	DeleteObject(ctx context.Context, key string) error

	// CreateFolder writes a zero-byte marker object at path (a trailing "/"
	// is appended when missing). Calling it twice for the same path is not
	// an error.
	CreateFolder(ctx context.Context, path string) (*FolderResult, error)

	// ListObjects returns up to in.MaxKeys objects under in.Prefix,
	// paginating internally. Callers never see continuation tokens.
	ListObjects(ctx context.Context, in ListInput) (*ListResult, error)

	// CopyObject performs a server-side copy. With ReplaceMetadata false the
	// destination inherits the source object's metadata; with true the
	// supplied map fully replaces it.
	CopyObject(ctx context.Context, in CopyInput) error

	// MoveObject is copy-then-delete-source and therefore not atomic. When
	// the copy succeeds but the source delete fails, the returned error is a
	// *MoveError so callers can reconcile the duplicate.
	MoveObject(ctx context.Context, in MoveInput) error

	// ValidateCredentials runs the staged probe sequence against a freshly
	// constructed client built from creds. It never reads or mutates the
	// driver's own initialized state and never touches user data.
	ValidateCredentials(ctx context.Context, creds Credentials) *validation.Result

	// HealthCheck runs a cheap existence probe using the initialized client.
	// It returns false, never an error, on any failure (including an
	// unconfigured driver).
	HealthCheck(ctx context.Context) bool

	// Close releases vendor client resources.
	Close() error
}

// BatchCopier is an optional capability for drivers with a vendor-native
// batch copy path. The orchestrator delegates to it when present instead of
// fanning out CopyObject calls itself.
type BatchCopier interface {
	BatchCopy(ctx context.Context, mappings []CopyInput, concurrency int) error
}

// UploadInput describes a single upload from a local temp file.
type UploadInput struct {
	// LocalPath is the temp file to stream from. Never loaded whole into
	// memory.
	LocalPath string

	// Key is the destination object key (provider form, no root marker).
	Key string

	// ContentType is the MIME type stored with the object.
	ContentType string

	// Metadata is attached as provider-native object metadata alongside the
	// upload timestamp.
	Metadata map[string]string
}

// UploadResult reports where an uploaded object landed.
type UploadResult struct {
	// FileURL is a stable (non-signed) URL for the object.
	FileURL string

	// Key is the resolved object key as stored by the provider.
	Key string

	// ProviderMetadata carries vendor response details (etag, version id).
	ProviderMetadata map[string]string
}

// FolderResult reports the marker object path created by CreateFolder.
type FolderResult struct {
	Path string
}

// ListInput configures a ListObjects operation.
type ListInput struct {
	// Prefix filters results to keys starting with this value.
	Prefix string

	// MaxKeys caps the total number of objects returned across all internal
	// pages. Zero uses the provider default (1000).
	MaxKeys int
}

// ListResult contains the aggregated objects from a ListObjects operation.
type ListResult struct {
	Objects []ObjectInfo
}

// Keys returns just the object keys, in listing order.
func (r *ListResult) Keys() []string {
	keys := make([]string, len(r.Objects))
	for i, o := range r.Objects {
		keys[i] = o.Key
	}
	return keys
}

// ObjectInfo is the per-object summary returned by ListObjects.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// CopyInput describes a server-side copy between two keys in the same
// bucket/container.
type CopyInput struct {
	From string
	To   string

	// Metadata replaces the destination metadata when ReplaceMetadata is
	// true; otherwise it is ignored and the source metadata is inherited.
	Metadata        map[string]string
	ReplaceMetadata bool
}

// MoveInput describes a copy-then-delete move.
type MoveInput struct {
	CopyInput
}

// ProviderType identifies a cloud storage vendor.
type ProviderType string

const (
	// ProviderAWS is AWS S3 and S3-compatible storage.
	ProviderAWS ProviderType = "aws"

	// ProviderGCP is Google Cloud Storage.
	ProviderGCP ProviderType = "gcp"

	// ProviderAzure is Azure Blob Storage.
	ProviderAzure ProviderType = "azure"

	// ProviderLocal is local filesystem storage, used for development and
	// tests.
	ProviderLocal ProviderType = "local"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// Known reports whether p names a supported vendor.
func (p ProviderType) Known() bool {
	switch p {
	case ProviderAWS, ProviderGCP, ProviderAzure, ProviderLocal:
		return true
	}
	return false
}
