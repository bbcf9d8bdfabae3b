package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for driver operations.
var (
	// ErrNotConfigured indicates the driver has not been successfully
	// initialized with credentials.
	ErrNotConfigured = errors.New("driver not configured")

	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket/container does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates the vendor service is unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrThrottled indicates the request was rate limited by the vendor.
	ErrThrottled = errors.New("request throttled")
)

// ProviderError wraps vendor-specific errors with operation context.
type ProviderError struct {
	// Op is the operation that failed (e.g., "Upload", "CopyObject").
	Op string

	// Provider is the vendor type (e.g., "aws").
	Provider ProviderType

	// Bucket is the bucket/container name, if applicable.
	Bucket string

	// Key is the object key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// MoveError reports a move whose copy succeeded but whose source delete
// failed. The destination object exists AND the source object still exists;
// the caller decides whether to retry the cleanup or accept the duplicate.
type MoveError struct {
	From      string
	To        string
	DeleteErr error
}

// Error implements the error interface.
func (e *MoveError) Error() string {
	return fmt.Sprintf("object copied to %s but source %s not deleted: %v", e.To, e.From, e.DeleteErr)
}

// Unwrap returns the delete error that interrupted the move.
func (e *MoveError) Unwrap() error {
	return e.DeleteErr
}

// IsNotConfigured returns true if the error indicates an uninitialized driver.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsBucketNotFound returns true if the error indicates the bucket does not exist.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsProviderUnavailable returns true if the error indicates the vendor service is unavailable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsPartialMove returns true if the error is a MoveError: the copy completed
// but the source object was not deleted.
func IsPartialMove(err error) bool {
	var me *MoveError
	return errors.As(err, &me)
}
