// Package s3 implements the storage driver for AWS S3 and S3-compatible
// stores.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
	"github.com/Jhaempyre/imaginestorage-sub000/pkg/validation"
)

// DefaultMaxKeys is the listing page size and the default result cap.
const DefaultMaxKeys = 1000

// Driver implements provider.Driver against the AWS SDK v2 S3 client.
//
// A Driver is scoped to one user's credentials between Initialize and Close.
type Driver struct {
	client   objectAPI
	presign  presignAPI
	bucket   string
	region   string
	endpoint string

	configured bool

	// build constructs vendor clients from credentials. Tests substitute it
	// to run the driver against fakes.
	build clientBuilder
}

var _ provider.Driver = (*Driver)(nil)

// New creates an uninitialized S3 driver.
func New() *Driver {
	return &Driver{build: buildClients}
}

// Provider identifies this driver as the AWS/S3-compatible one.
func (d *Driver) Provider() provider.ProviderType {
	return provider.ProviderAWS
}

// Initialize builds an S3 client from the credentials and probes the bucket
// with HeadBucket. Re-initializing fully replaces prior state; a failed
// initialize leaves the driver unconfigured.
func (d *Driver) Initialize(ctx context.Context, creds provider.Credentials) error {
	d.reset()

	c, err := awsCredentials(creds)
	if err != nil {
		return err
	}

	client, presign, err := d.build(ctx, c)
	if err != nil {
		return &provider.ProviderError{Op: "Initialize", Provider: provider.ProviderAWS, Bucket: c.Bucket, Err: err}
	}

	if _, err := client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.Bucket)}); err != nil {
		return wrapError("Initialize", c.Bucket, "", err)
	}

	d.client = client
	d.presign = presign
	d.bucket = c.Bucket
	d.region = c.Region
	d.endpoint = c.Endpoint
	d.configured = true
	return nil
}

func (d *Driver) reset() {
	d.client = nil
	d.presign = nil
	d.bucket = ""
	d.region = ""
	d.endpoint = ""
	d.configured = false
}

// IsConfigured reports whether the last Initialize succeeded.
func (d *Driver) IsConfigured() bool {
	return d.configured
}

func (d *Driver) ensureConfigured(op string) error {
	if !d.configured {
		return &provider.ProviderError{Op: op, Provider: provider.ProviderAWS, Err: provider.ErrNotConfigured}
	}
	return nil
}

// Upload streams the local temp file to the destination key. The caller owns
// the temp file.
func (d *Driver) Upload(ctx context.Context, in provider.UploadInput) (*provider.UploadResult, error) {
	if err := d.ensureConfigured("Upload"); err != nil {
		return nil, err
	}

	f, err := os.Open(in.LocalPath)
	if err != nil {
		return nil, &provider.ProviderError{Op: "Upload", Provider: provider.ProviderAWS, Bucket: d.bucket, Key: in.Key,
			Err: fmt.Errorf("open temp file: %w", err)}
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, &provider.ProviderError{Op: "Upload", Provider: provider.ProviderAWS, Bucket: d.bucket, Key: in.Key,
			Err: fmt.Errorf("stat temp file: %w", err)}
	}

	out, err := d.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(in.Key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   contentTypeOrDefault(in.ContentType),
		Metadata:      uploadMetadata(in.Metadata),
	})
	if err != nil {
		return nil, wrapError("Upload", d.bucket, in.Key, err)
	}

	result := &provider.UploadResult{
		FileURL:          d.objectURL(in.Key),
		Key:              in.Key,
		ProviderMetadata: map[string]string{},
	}
	if out.ETag != nil {
		result.ProviderMetadata["etag"] = strings.Trim(*out.ETag, `"`)
	}
	if out.VersionId != nil {
		result.ProviderMetadata["versionId"] = *out.VersionId
	}
	return result, nil
}

// GetDownloadURL returns a presigned GET URL for key.
func (d *Driver) GetDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if err := d.ensureConfigured("GetDownloadURL"); err != nil {
		return "", err
	}
	if expiresIn <= 0 {
		expiresIn = provider.DefaultDownloadExpiry
	}

	req, err := d.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", wrapError("GetDownloadURL", d.bucket, key, err)
	}
	return req.URL, nil
}

// DeleteObject removes a single object. S3's DeleteObject is silent about
// missing keys, so a HeadObject runs first to surface ErrNotFound.
func (d *Driver) DeleteObject(ctx context.Context, key string) error {
	if err := d.ensureConfigured("DeleteObject"); err != nil {
		return err
	}

	if _, err := d.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return wrapError("DeleteObject", d.bucket, key, err)
	}

	if _, err := d.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return wrapError("DeleteObject", d.bucket, key, err)
	}
	return nil
}

// CreateFolder writes a zero-byte marker object at path with a trailing
// slash. Overwriting an existing marker is not an error.
func (d *Driver) CreateFolder(ctx context.Context, path string) (*provider.FolderResult, error) {
	if err := d.ensureConfigured("CreateFolder"); err != nil {
		return nil, err
	}

	resolved := folderPath(path)
	if _, err := d.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(resolved),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	}); err != nil {
		return nil, wrapError("CreateFolder", d.bucket, resolved, err)
	}
	return &provider.FolderResult{Path: resolved}, nil
}

// ListObjects pages through ListObjectsV2 until MaxKeys results are
// collected or the listing is exhausted.
func (d *Driver) ListObjects(ctx context.Context, in provider.ListInput) (*provider.ListResult, error) {
	if err := d.ensureConfigured("ListObjects"); err != nil {
		return nil, err
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	result := &provider.ListResult{}
	var token *string
	for {
		remaining := maxKeys - len(result.Objects)
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > DefaultMaxKeys {
			pageSize = DefaultMaxKeys
		}

		input := &awss3.ListObjectsV2Input{
			Bucket:            aws.String(d.bucket),
			MaxKeys:           aws.Int32(int32(pageSize)),
			ContinuationToken: token,
		}
		if in.Prefix != "" {
			input.Prefix = aws.String(in.Prefix)
		}

		out, err := d.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, wrapError("ListObjects", d.bucket, in.Prefix, err)
		}

		for _, obj := range out.Contents {
			result.Objects = append(result.Objects, provider.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}

	return result, nil
}

// CopyObject performs a server-side copy within the bucket.
func (d *Driver) CopyObject(ctx context.Context, in provider.CopyInput) error {
	if err := d.ensureConfigured("CopyObject"); err != nil {
		return err
	}

	input := &awss3.CopyObjectInput{
		Bucket:            aws.String(d.bucket),
		Key:               aws.String(in.To),
		CopySource:        aws.String(url.PathEscape(d.bucket + "/" + in.From)),
		MetadataDirective: types.MetadataDirectiveCopy,
	}
	if in.ReplaceMetadata {
		input.MetadataDirective = types.MetadataDirectiveReplace
		input.Metadata = in.Metadata
	}

	if _, err := d.client.CopyObject(ctx, input); err != nil {
		return wrapError("CopyObject", d.bucket, in.From, err)
	}
	return nil
}

// MoveObject is copy-then-delete. A failed source delete after a successful
// copy returns a *provider.MoveError, never plain success.
func (d *Driver) MoveObject(ctx context.Context, in provider.MoveInput) error {
	if err := d.CopyObject(ctx, in.CopyInput); err != nil {
		return err
	}

	if _, err := d.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(in.From),
	}); err != nil {
		return &provider.MoveError{
			From:      in.From,
			To:        in.To,
			DeleteErr: wrapError("MoveObject", d.bucket, in.From, err),
		}
	}
	return nil
}

// ValidateCredentials runs the staged probe sequence on a freshly built
// client; the driver's own state is never consulted or mutated.
func (d *Driver) ValidateCredentials(ctx context.Context, creds provider.Credentials) *validation.Result {
	return d.validate(ctx, creds)
}

// HealthCheck probes the bucket with the initialized client. Returns false,
// never an error, on any failure.
func (d *Driver) HealthCheck(ctx context.Context) bool {
	if !d.configured {
		return false
	}
	_, err := d.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(d.bucket)})
	return err == nil
}

// Close releases client state. The S3 client needs no explicit cleanup.
func (d *Driver) Close() error {
	d.reset()
	return nil
}

// objectURL builds the stable (non-signed) URL of an object.
func (d *Driver) objectURL(key string) string {
	if d.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(d.endpoint, "/"), d.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", d.bucket, d.region, key)
}

func awsCredentials(creds provider.Credentials) (*provider.AWSCredentials, error) {
	if creds.Provider != provider.ProviderAWS || creds.AWS == nil {
		return nil, &provider.CredentialError{Provider: creds.Provider, Message: "aws credentials required"}
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds.AWS, nil
}

func contentTypeOrDefault(ct string) *string {
	if ct == "" {
		ct = "application/octet-stream"
	}
	return aws.String(ct)
}

// uploadMetadata clones the caller's metadata and stamps the upload time.
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
