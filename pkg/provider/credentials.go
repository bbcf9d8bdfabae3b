package provider

import (
	"encoding/json"
	"fmt"
)

// Credentials is the tagged union of vendor credential bags. Exactly one
// variant matching Provider must be populated. The whole structure
// round-trips through JSON because this is what the vault encrypts at rest.
//
// Credential values are never logged; see Redacted.
type Credentials struct {
	Provider ProviderType `json:"provider"`

	AWS   *AWSCredentials   `json:"aws,omitempty"`
	GCP   *GCPCredentials   `json:"gcp,omitempty"`
	Azure *AzureCredentials `json:"azure,omitempty"`
	Local *LocalCredentials `json:"local,omitempty"`
}

// AWSCredentials configures the S3-compatible driver.
type AWSCredentials struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`

	// Endpoint is a custom URL for S3-compatible stores (MinIO, Wasabi).
	// Leave empty for AWS S3.
	Endpoint string `json:"endpoint,omitempty"`

	// ForcePathStyle forces path-style URLs; required by most S3-compatible
	// stores.
	ForcePathStyle bool `json:"forcePathStyle,omitempty"`
}

// GCPCredentials configures the GCS driver.
type GCPCredentials struct {
	ProjectID string `json:"projectId"`
	Bucket    string `json:"bucket"`

	// ServiceAccountJSON is the full service-account key file content.
	ServiceAccountJSON string `json:"serviceAccountJson"`
}

// AzureCredentials configures the Azure Blob driver.
type AzureCredentials struct {
	AccountName string `json:"accountName"`
	AccountKey  string `json:"accountKey"`
	Container   string `json:"container"`
}

// LocalCredentials configures the local filesystem driver.
type LocalCredentials struct {
	BaseDir string `json:"baseDir"`
}

// ParseCredentials deserializes the vault plaintext back into a credential
// bag and checks internal consistency.
func ParseCredentials(plaintext string) (Credentials, error) {
	var c Credentials
	if err := json.Unmarshal([]byte(plaintext), &c); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// Encode serializes the credential bag for the vault.
func (c Credentials) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}
	return string(data), nil
}

// Validate checks that the provider is known, that the matching variant is
// populated, and that all fields the provider metadata marks required are
// present.
func (c Credentials) Validate() error {
	if !c.Provider.Known() {
		return &CredentialError{Provider: c.Provider, Message: "unknown provider"}
	}

	fields := c.fields()
	if fields == nil {
		return &CredentialError{Provider: c.Provider, Message: "credential variant missing for provider"}
	}

	meta, ok := MetadataFor(c.Provider)
	if !ok {
		return &CredentialError{Provider: c.Provider, Message: "no metadata registered for provider"}
	}
	for _, f := range meta.Fields {
		if !f.Required {
			continue
		}
		if fields[f.Name] == "" {
			return &CredentialError{Provider: c.Provider, Field: f.Name, Message: "required field missing"}
		}
	}
	return nil
}

// fields flattens the active variant into field-name -> value for metadata
// checks. Returns nil when the variant matching Provider is absent.
func (c Credentials) fields() map[string]string {
	switch c.Provider {
	case ProviderAWS:
		if c.AWS == nil {
			return nil
		}
		return map[string]string{
			"accessKeyId":     c.AWS.AccessKeyID,
			"secretAccessKey": c.AWS.SecretAccessKey,
			"region":          c.AWS.Region,
			"bucket":          c.AWS.Bucket,
			"endpoint":        c.AWS.Endpoint,
		}
	case ProviderGCP:
		if c.GCP == nil {
			return nil
		}
		return map[string]string{
			"projectId":          c.GCP.ProjectID,
			"bucket":             c.GCP.Bucket,
			"serviceAccountJson": c.GCP.ServiceAccountJSON,
		}
	case ProviderAzure:
		if c.Azure == nil {
			return nil
		}
		return map[string]string{
			"accountName": c.Azure.AccountName,
			"accountKey":  c.Azure.AccountKey,
			"container":   c.Azure.Container,
		}
	case ProviderLocal:
		if c.Local == nil {
			return nil
		}
		return map[string]string{
			"baseDir": c.Local.BaseDir,
		}
	}
	return nil
}

// Bucket returns the bucket/container/base-dir of the active variant, or ""
// when the variant is absent.
func (c Credentials) Bucket() string {
	switch c.Provider {
	case ProviderAWS:
		if c.AWS != nil {
			return c.AWS.Bucket
		}
	case ProviderGCP:
		if c.GCP != nil {
			return c.GCP.Bucket
		}
	case ProviderAzure:
		if c.Azure != nil {
			return c.Azure.Container
		}
	case ProviderLocal:
		if c.Local != nil {
			return c.Local.BaseDir
		}
	}
	return ""
}

// Redacted returns a loggable identifier: provider plus bucket, no secrets.
func (c Credentials) Redacted() string {
	return fmt.Sprintf("%s:%s", c.Provider, c.Bucket())
}

// CredentialError reports a malformed or incomplete credential bag.
type CredentialError struct {
	Provider ProviderType
	Field    string
	Message  string
}

// Error implements the error interface.
func (e *CredentialError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s credentials: %s: %s", e.Provider, e.Field, e.Message)
	}
	return fmt.Sprintf("%s credentials: %s", e.Provider, e.Message)
}
