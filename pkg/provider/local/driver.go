// Package local implements the storage driver over a local filesystem
// directory, used for development and tests.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// DefaultMaxKeys caps ListObjects results when the caller passes zero.
const DefaultMaxKeys = 1000

// Driver implements provider.Driver over a base directory. Keys are relative
// paths under BaseDir; folder markers are real directories.
type Driver struct {
	baseDir string

	configured bool
}

var _ provider.Driver = (*Driver)(nil)

// New creates an uninitialized local driver.
func New() *Driver {
	return &Driver{}
}

// Provider identifies this driver as the local one.
func (d *Driver) Provider() provider.ProviderType {
	return provider.ProviderLocal
}

// Initialize resolves the base directory and verifies it exists and is a
// directory.
func (d *Driver) Initialize(ctx context.Context, creds provider.Credentials) error {
	_ = ctx
	d.baseDir = ""
	d.configured = false

	c, err := localCredentials(creds)
	if err != nil {
		return err
	}

	base := filepath.Clean(c.BaseDir)
	st, err := os.Stat(base)
	if err != nil {
		return wrapError("Initialize", base, err)
	}
	if !st.IsDir() {
		return &provider.ProviderError{Op: "Initialize", Provider: provider.ProviderLocal, Bucket: base,
			Err: fmt.Errorf("base dir is not a directory")}
	}

	d.baseDir = base
	d.configured = true
	return nil
}

// IsConfigured reports whether the last Initialize succeeded.
func (d *Driver) IsConfigured() bool {
	return d.configured
}

func (d *Driver) ensureConfigured(op string) error {
	if !d.configured {
		return &provider.ProviderError{Op: op, Provider: provider.ProviderLocal, Err: provider.ErrNotConfigured}
	}
	return nil
}

// Upload copies the local temp file under the base directory. The write goes
// through a temp file in the target directory and a rename, so a partially
// written object is never observable.
func (d *Driver) Upload(ctx context.Context, in provider.UploadInput) (*provider.UploadResult, error) {
	_ = ctx
	if err := d.ensureConfigured("Upload"); err != nil {
		return nil, err
	}

	full, err := d.fullPath(in.Key)
	if err != nil {
		return nil, wrapError("Upload", in.Key, err)
	}

	src, err := os.Open(in.LocalPath)
	if err != nil {
		return nil, wrapError("Upload", in.Key, fmt.Errorf("open temp file: %w", err))
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, wrapError("Upload", in.Key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "imaginestorage-put-*")
	if err != nil {
		return nil, wrapError("Upload", in.Key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, src)
	if err != nil {
		return nil, wrapError("Upload", in.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, wrapError("Upload", in.Key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return nil, wrapError("Upload", in.Key, err)
	}

	return &provider.UploadResult{
		FileURL: fileURL(full),
		Key:     in.Key,
		ProviderMetadata: map[string]string{
			"size":             fmt.Sprintf("%d", n),
			"upload-timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// GetDownloadURL returns a file:// URL. There is nothing to sign locally;
// the expiry only feeds the contract.
func (d *Driver) GetDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	_ = ctx
	_ = expiresIn
	if err := d.ensureConfigured("GetDownloadURL"); err != nil {
		return "", err
	}

	full, err := d.fullPath(key)
	if err != nil {
		return "", wrapError("GetDownloadURL", key, err)
	}
	if _, err := os.Stat(full); err != nil {
		return "", wrapError("GetDownloadURL", key, err)
	}
	return fileURL(full), nil
}

// DeleteObject removes a single file. A missing file is reported as not
// found, matching the cloud drivers.
func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	_ = ctx
	if err := d.ensureConfigured("DeleteObject"); err != nil {
		return err
	}

	full, err := d.fullPath(key)
	if err != nil {
		return wrapError("DeleteObject", key, err)
	}
	if err := os.Remove(full); err != nil {
		return wrapError("DeleteObject", key, err)
	}
	return nil
}

// CreateFolder creates the directory. Already existing is success.
func (d *Driver) CreateFolder(ctx context.Context, path string) (*provider.FolderResult, error) {
	_ = ctx
	if err := d.ensureConfigured("CreateFolder"); err != nil {
		return nil, err
	}

	resolved := folderPath(path)
	full, err := d.fullPath(strings.TrimSuffix(resolved, "/"))
	if err != nil {
		return nil, wrapError("CreateFolder", resolved, err)
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return nil, wrapError("CreateFolder", resolved, err)
	}
	return &provider.FolderResult{Path: resolved}, nil
}

// ListObjects walks the tree under the prefix and returns files in sorted
// key order.
func (d *Driver) ListObjects(ctx context.Context, in provider.ListInput) (*provider.ListResult, error) {
	_ = ctx
	if err := d.ensureConfigured("ListObjects"); err != nil {
		return nil, err
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	keys, err := d.collectKeys(strings.TrimPrefix(in.Prefix, "/"))
	if err != nil {
		return nil, wrapError("ListObjects", in.Prefix, err)
	}
	sort.Strings(keys)
	if len(keys) > maxKeys {
		keys = keys[:maxKeys]
	}

	result := &provider.ListResult{}
	for _, k := range keys {
		full, err := d.fullPath(k)
		if err != nil {
			continue
		}
		st, err := os.Stat(full)
		if err != nil || st.IsDir() {
			continue
		}
		result.Objects = append(result.Objects, provider.ObjectInfo{
			Key:          k,
			Size:         st.Size(),
			LastModified: st.ModTime(),
		})
	}
	return result, nil
}

// CopyObject copies file content. ReplaceMetadata has no effect; the
// filesystem carries no object metadata.
func (d *Driver) CopyObject(ctx context.Context, in provider.CopyInput) error {
	_ = ctx
	if err := d.ensureConfigured("CopyObject"); err != nil {
		return err
	}

	from, err := d.fullPath(in.From)
	if err != nil {
		return wrapError("CopyObject", in.From, err)
	}
	to, err := d.fullPath(in.To)
	if err != nil {
		return wrapError("CopyObject", in.To, err)
	}

	src, err := os.Open(from)
	if err != nil {
		return wrapError("CopyObject", in.From, err)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return wrapError("CopyObject", in.To, err)
	}
	dst, err := os.Create(to)
	if err != nil {
		return wrapError("CopyObject", in.To, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return wrapError("CopyObject", in.To, err)
	}
	if err := dst.Close(); err != nil {
		return wrapError("CopyObject", in.To, err)
	}
	return nil
}

// MoveObject is copy-then-delete, same as the cloud drivers, so a delete
// failure after a successful copy surfaces as a *provider.MoveError.
func (d *Driver) MoveObject(ctx context.Context, in provider.MoveInput) error {
	if err := d.CopyObject(ctx, in.CopyInput); err != nil {
		return err
	}

	from, err := d.fullPath(in.From)
	if err != nil {
		return wrapError("MoveObject", in.From, err)
	}
	if err := os.Remove(from); err != nil {
		return &provider.MoveError{
			From:      in.From,
			To:        in.To,
			DeleteErr: wrapError("MoveObject", in.From, err),
		}
	}
	return nil
}

// HealthCheck verifies the base directory is still present.
func (d *Driver) HealthCheck(ctx context.Context) bool {
	_ = ctx
	if !d.configured {
		return false
	}
	st, err := os.Stat(d.baseDir)
	return err == nil && st.IsDir()
}

// Close resets the driver.
func (d *Driver) Close() error {
	d.baseDir = ""
	d.configured = false
	return nil
}

func (d *Driver) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(d.baseDir, filepath.FromSlash(clean)), nil
}

func (d *Driver) collectKeys(prefix string) ([]string, error) {
	// The prefix may end mid-segment ("docs/a" matches docs/april/x), so walk
	// from its directory portion and filter keys by string prefix, which is
	// what the cloud list APIs do.
	dir := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = prefix[:i]
	}
	root, err := d.fullPath(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var keys []string
	_ = filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.baseDir, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	return keys, nil
}

func localCredentials(creds provider.Credentials) (*provider.LocalCredentials, error) {
	if creds.Provider != provider.ProviderLocal || creds.Local == nil {
		return nil, &provider.CredentialError{Provider: creds.Provider, Message: "local credentials required"}
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds.Local, nil
}

func folderPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

func fileURL(full string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(full)}
	return u.String()
}

// wrapError normalizes filesystem errors to provider sentinels.
func wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderLocal, Key: key, Err: err}
	if os.IsNotExist(err) {
		wrapped.Err = provider.ErrNotFound
	}
	if os.IsPermission(err) {
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}

// ValidateCredentials probes the base directory the same way the cloud
// drivers probe a bucket: existence, a probe write, a probe delete.
func (d *Driver) ValidateCredentials(ctx context.Context, creds provider.Credentials) *validation.Result {
	_ = ctx
	c, err := localCredentials(creds)
	if err != nil {
		return validation.Invalid(provider.Diagnose(validation.StageClientConstruction, err))
	}

	base := filepath.Clean(c.BaseDir)
	trace := &validation.Trace{}

	start := time.Now()
	st, err := os.Stat(base)
	trace.Record(validation.StageExistenceCheck, time.Since(start))
	if err != nil || !st.IsDir() {
		if err == nil {
			err = fmt.Errorf("base dir is not a directory")
		}
		return trace.Invalid(provider.Diagnose(validation.StageExistenceCheck, wrapError("Validate", base, err)))
	}
	trace.Grant(validation.PermissionRead)

	probe := filepath.Join(base, filepath.FromSlash(validation.ProbeKey()))

	start = time.Now()
	err = os.MkdirAll(filepath.Dir(probe), 0o755)
	if err == nil {
		err = os.WriteFile(probe, []byte("probe"), 0o644)
	}
	trace.Record(validation.StageWriteTest, time.Since(start))
	if err != nil {
		return trace.Invalid(provider.Diagnose(validation.StageWriteTest, wrapError("Validate", probe, err)))
	}
	trace.Grant(validation.PermissionWrite)

	start = time.Now()
	err = os.Remove(probe)
	trace.Record(validation.StageDeleteTest, time.Since(start))
	if err != nil {
		diag := provider.Diagnose(validation.StageDeleteTest, wrapError("Validate", probe, err))
		diag.Message += " (probe file " + probe + " was left behind)"
		return trace.Invalid(diag)
	}
	trace.Grant(validation.PermissionDelete)

	return trace.Valid(base, "")
}
