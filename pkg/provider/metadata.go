package provider

import (
	"fmt"
	"regexp"
)

// FieldSpec describes one credential field of a vendor: whether it is
// mandatory, the format it must match, and the human-readable definition
// surfaced to onboarding form generators.
type FieldSpec struct {
	// Name is the JSON field name inside the credential variant.
	Name string `json:"name"`

	// Label is the human-readable field title.
	Label string `json:"label"`

	// Description explains where the user finds the value.
	Description string `json:"description"`

	// Required marks fields that must be non-empty.
	Required bool `json:"required"`

	// Secret marks fields that must never be echoed back.
	Secret bool `json:"secret"`

	// Pattern is an optional server-side format pre-check, applied before
	// any live validation call.
	Pattern *regexp.Regexp `json:"-"`
}

// Metadata is the static descriptor of one vendor's credential schema.
// Immutable; loaded at process start.
type Metadata struct {
	Provider    ProviderType `json:"provider"`
	DisplayName string       `json:"displayName"`
	Fields      []FieldSpec  `json:"fields"`
}

var metadataTable = map[ProviderType]Metadata{
	ProviderAWS: {
		Provider:    ProviderAWS,
		DisplayName: "Amazon S3 / S3-compatible",
		Fields: []FieldSpec{
			{
				Name:        "accessKeyId",
				Label:       "Access Key ID",
				Description: "IAM access key ID with s3:GetObject, s3:PutObject, s3:DeleteObject and s3:ListBucket on the bucket",
				Required:    true,
				Pattern:     regexp.MustCompile(`^[A-Z0-9]{16,128}$`),
			},
			{
				Name:        "secretAccessKey",
				Label:       "Secret Access Key",
				Description: "IAM secret access key paired with the access key ID",
				Required:    true,
				Secret:      true,
				Pattern:     regexp.MustCompile(`^[A-Za-z0-9/+=]{20,}$`),
			},
			{
				Name:        "region",
				Label:       "Region",
				Description: "AWS region of the bucket, e.g. us-east-1",
				Required:    true,
				Pattern:     regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`),
			},
			{
				Name:        "bucket",
				Label:       "Bucket",
				Description: "Bucket name files are stored in",
				Required:    true,
				Pattern:     regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`),
			},
			{
				Name:        "endpoint",
				Label:       "Endpoint",
				Description: "Custom endpoint URL for S3-compatible stores; leave empty for AWS",
				Required:    false,
				Pattern:     regexp.MustCompile(`^https?://\S+$`),
			},
		},
	},
	ProviderGCP: {
		Provider:    ProviderGCP,
		DisplayName: "Google Cloud Storage",
		Fields: []FieldSpec{
			{
				Name:        "projectId",
				Label:       "Project ID",
				Description: "GCP project the bucket belongs to",
				Required:    true,
				Pattern:     regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`),
			},
			{
				Name:        "bucket",
				Label:       "Bucket",
				Description: "Bucket name files are stored in",
				Required:    true,
				Pattern:     regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,220}[a-z0-9]$`),
			},
			{
				Name:        "serviceAccountJson",
				Label:       "Service Account Key",
				Description: "Full JSON key file of a service account with Storage Object Admin on the bucket",
				Required:    true,
				Secret:      true,
			},
		},
	},
	ProviderAzure: {
		Provider:    ProviderAzure,
		DisplayName: "Azure Blob Storage",
		Fields: []FieldSpec{
			{
				Name:        "accountName",
				Label:       "Storage Account",
				Description: "Azure storage account name",
				Required:    true,
				Pattern:     regexp.MustCompile(`^[a-z0-9]{3,24}$`),
			},
			{
				Name:        "accountKey",
				Label:       "Account Key",
				Description: "Shared key of the storage account",
				Required:    true,
				Secret:      true,
				Pattern:     regexp.MustCompile(`^[A-Za-z0-9/+=]{20,}$`),
			},
			{
				Name:        "container",
				Label:       "Container",
				Description: "Blob container files are stored in",
				Required:    true,
				Pattern:     regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`),
			},
		},
	},
	ProviderLocal: {
		Provider:    ProviderLocal,
		DisplayName: "Local Filesystem",
		Fields: []FieldSpec{
			{
				Name:        "baseDir",
				Label:       "Base Directory",
				Description: "Absolute directory files are stored under",
				Required:    true,
			},
		},
	},
}

// MetadataFor returns the static credential descriptor of a vendor.
func MetadataFor(p ProviderType) (Metadata, bool) {
	m, ok := metadataTable[p]
	return m, ok
}

// AllMetadata returns descriptors for every supported vendor, in a stable
// order.
func AllMetadata() []Metadata {
	out := make([]Metadata, 0, len(metadataTable))
	for _, p := range []ProviderType{ProviderAWS, ProviderGCP, ProviderAzure, ProviderLocal} {
		out = append(out, metadataTable[p])
	}
	return out
}

// CheckFormat runs the metadata pattern pre-checks against a credential bag
// without any live vendor call. Empty optional fields are skipped.
func CheckFormat(c Credentials) error {
	meta, ok := MetadataFor(c.Provider)
	if !ok {
		return &CredentialError{Provider: c.Provider, Message: "unknown provider"}
	}
	fields := c.fields()
	if fields == nil {
		return &CredentialError{Provider: c.Provider, Message: "credential variant missing for provider"}
	}

	for _, f := range meta.Fields {
		val := fields[f.Name]
		if val == "" {
			if f.Required {
				return &CredentialError{Provider: c.Provider, Field: f.Name, Message: "required field missing"}
			}
			continue
		}
		if f.Pattern != nil && !f.Pattern.MatchString(val) {
			return &CredentialError{
				Provider: c.Provider,
				Field:    f.Name,
				Message:  fmt.Sprintf("value does not match expected format %s", f.Pattern.String()),
			}
		}
	}
	return nil
}
