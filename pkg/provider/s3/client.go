package s3

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/Jhaempyre/imaginestorage-sub000/pkg/provider"
)

// objectAPI is the slice of the S3 client surface the driver uses. Tests
// substitute a fake; production uses *s3.Client.
type objectAPI interface {
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, opts ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	CopyObject(ctx context.Context, in *awss3.CopyObjectInput, opts ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error)
}

// presignAPI is the presigner surface the driver uses.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.PresignOptions)) (*v4PresignedRequest, error)
}

// v4PresignedRequest mirrors the fields of the SDK's presigned request the
// driver reads.
type v4PresignedRequest struct {
	URL    string
	Method string
}

// clientBuilder constructs vendor clients from credentials.
type clientBuilder func(ctx context.Context, c *provider.AWSCredentials) (objectAPI, presignAPI, error)

// buildClients is the production client builder: static credentials, region
// from the credential bag, optional custom endpoint with path-style
// addressing for S3-compatible stores.
func buildClients(ctx context.Context, c *provider.AWSCredentials) (objectAPI, presignAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID, c.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, nil, err
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		if c.ForcePathStyle || c.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return client, &sdkPresigner{presign: awss3.NewPresignClient(client)}, nil
}

// sdkPresigner adapts the SDK presign client to presignAPI.
type sdkPresigner struct {
	presign *awss3.PresignClient
}

func (p *sdkPresigner) PresignGetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.PresignOptions)) (*v4PresignedRequest, error) {
	req, err := p.presign.PresignGetObject(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return &v4PresignedRequest{URL: req.URL, Method: req.Method}, nil
}

// wrapError converts SDK errors to provider errors with the matching
// sentinel. Typed errors are checked first, then smithy API error codes.
func wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderAWS,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = provider.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = provider.ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = provider.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AuthorizationHeaderMalformed":
			wrapped.Err = provider.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = provider.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = provider.ErrProviderUnavailable
		}
		return wrapped
	}

	// Some transports only surface the HTTP status in the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "StatusCode: 404"):
		wrapped.Err = provider.ErrNotFound
	case strings.Contains(msg, "StatusCode: 403"):
		wrapped.Err = provider.ErrAccessDenied
	case strings.Contains(msg, "StatusCode: 429"):
		wrapped.Err = provider.ErrThrottled
	case strings.Contains(msg, "StatusCode: 503"):
		wrapped.Err = provider.ErrProviderUnavailable
	}
	return wrapped
}
