// Package validation defines the structured result of a staged credential
// validation attempt.
//
// Every vendor runs the same stage sequence against a throwaway probe object:
// client construction, existence check, write test, delete test. The first
// failing stage short-circuits the rest and produces a Diagnostic with a
// stable code, the raw vendor error, and vendor-specific remediation
// suggestions. A fully successful run reports the granted permission set and
// per-stage latencies.
package validation

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ProbePrefix is the private key prefix all validation probe objects live
// under. Validation never touches user data.
const ProbePrefix = ".imaginary/_validator/"

// Code is a stable, user-actionable failure category.
type Code string

const (
	// CodeInvalidCredentials: client construction or authentication failed.
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"

	// CodeBucketNotFound: authenticated, but the bucket/container is missing.
	CodeBucketNotFound Code = "BUCKET_NOT_FOUND"

	// CodeInsufficientPermissions: authenticated but forbidden on a probe
	// operation.
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"

	// CodeValidationFailed: unclassified failure (network, vendor outage).
	CodeValidationFailed Code = "VALIDATION_FAILED"
)

// Stage names one step of the probe sequence.
type Stage string

const (
	StageClientConstruction Stage = "client_construction"
	StageExistenceCheck     Stage = "existence_check"
	StageWriteTest          Stage = "write_test"
	StageDeleteTest         Stage = "delete_test"
)

// Permission labels inferred from passed stages.
const (
	PermissionRead   = "read"
	PermissionWrite  = "write"
	PermissionDelete = "delete"
)

// Result is the outcome of one validation attempt. Produced fresh per
// attempt, never reused.
type Result struct {
	IsValid     bool         `json:"isValid"`
	Error       *Diagnostic  `json:"error,omitempty"`
	StorageInfo *StorageInfo `json:"storageInfo,omitempty"`
}

// Diagnostic describes a validation failure in actionable terms.
type Diagnostic struct {
	Code Code `json:"code"`

	// Stage is the probe step that failed.
	Stage Stage `json:"stage"`

	// Message is a short human-readable summary.
	Message string `json:"message"`

	// Details carries the raw vendor error text.
	Details string `json:"details,omitempty"`

	// Suggestions is an ordered list of remediation steps specific to the
	// failed stage and vendor.
	Suggestions []string `json:"suggestions,omitempty"`

	// Latency holds the timings of the stages that ran before the failure.
	// The failed stage's own duration is included; later stages stay zero.
	Latency Latency `json:"latency"`
}

// StorageInfo summarizes a successful validation.
type StorageInfo struct {
	BucketName  string   `json:"bucketName"`
	Region      string   `json:"region,omitempty"`
	Permissions []string `json:"permissions"`
	Latency     Latency  `json:"latency"`
}

// Latency holds per-stage wall-clock timings in milliseconds. A zero value
// means the stage was never reached.
type Latency struct {
	ExistenceCheckMS int64 `json:"existenceCheck"`
	WriteTestMS      int64 `json:"writeTest"`
	DeleteTestMS     int64 `json:"deleteTest"`
}

// ProbeKey returns a fresh throwaway object key under ProbePrefix.
func ProbeKey() string {
	var b [16]byte
	// rand.Read on the crypto source never fails on supported platforms.
	_, _ = rand.Read(b[:])
	return ProbePrefix + hex.EncodeToString(b[:])
}

// Trace accumulates per-stage latencies and granted permissions during a
// validation run. The zero value is ready to use.
type Trace struct {
	latency     Latency
	permissions []string
}

// Record stores the wall-clock duration of a completed stage.
func (t *Trace) Record(stage Stage, d time.Duration) {
	ms := d.Milliseconds()
	switch stage {
	case StageExistenceCheck:
		t.latency.ExistenceCheckMS = ms
	case StageWriteTest:
		t.latency.WriteTestMS = ms
	case StageDeleteTest:
		t.latency.DeleteTestMS = ms
	}
}

// Grant marks a permission as verified by a passed stage.
func (t *Trace) Grant(permission string) {
	t.permissions = append(t.permissions, permission)
}

// Latency returns the timings recorded so far.
func (t *Trace) Latency() Latency {
	return t.latency
}

// Valid builds a success Result for the given bucket and region from the
// stages recorded in the trace.
func (t *Trace) Valid(bucket, region string) *Result {
	perms := make([]string, len(t.permissions))
	copy(perms, t.permissions)
	return &Result{
		IsValid: true,
		StorageInfo: &StorageInfo{
			BucketName:  bucket,
			Region:      region,
			Permissions: perms,
			Latency:     t.latency,
		},
	}
}

// Invalid builds a failure Result carrying the diagnostic plus the stage
// latencies recorded so far, so a write-stage failure still reports how long
// the write probe took.
func (t *Trace) Invalid(diag Diagnostic) *Result {
	diag.Latency = t.latency
	return &Result{IsValid: false, Error: &diag}
}

// Invalid builds a failure Result for errors raised before any stage ran.
func Invalid(diag Diagnostic) *Result {
	d := diag
	return &Result{IsValid: false, Error: &d}
}
