package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	t.Run("every known provider has metadata", func(t *testing.T) {
		for _, p := range []ProviderType{ProviderAWS, ProviderGCP, ProviderAzure, ProviderLocal} {
			meta, ok := MetadataFor(p)
			require.True(t, ok, "provider %s", p)
			assert.Equal(t, p, meta.Provider)
			assert.NotEmpty(t, meta.DisplayName)
			assert.NotEmpty(t, meta.Fields)
		}
	})

	t.Run("unknown provider has none", func(t *testing.T) {
		_, ok := MetadataFor(ProviderType("dropbox"))
		assert.False(t, ok)
	})

	t.Run("secret fields are marked", func(t *testing.T) {
		meta, ok := MetadataFor(ProviderAWS)
		require.True(t, ok)

		secrets := map[string]bool{}
		for _, f := range meta.Fields {
			secrets[f.Name] = f.Secret
		}
		assert.True(t, secrets["secretAccessKey"])
		assert.False(t, secrets["accessKeyId"])
		assert.False(t, secrets["bucket"])
	})
}

func TestAllMetadata(t *testing.T) {
	all := AllMetadata()
	require.Len(t, all, 4)
	// Stable order for UI rendering.
	assert.Equal(t, ProviderAWS, all[0].Provider)
	assert.Equal(t, ProviderLocal, all[3].Provider)
}

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Credentials)
		wantErr string
	}{
		{
			name:   "valid aws passes",
			mutate: func(c *Credentials) {},
		},
		{
			name:    "lowercase access key id rejected",
			mutate:  func(c *Credentials) { c.AWS.AccessKeyID = "akiaiosfodnn7example" },
			wantErr: "accessKeyId",
		},
		{
			name:    "malformed region rejected",
			mutate:  func(c *Credentials) { c.AWS.Region = "useast1" },
			wantErr: "region",
		},
		{
			name:    "short secret rejected",
			mutate:  func(c *Credentials) { c.AWS.SecretAccessKey = "short" },
			wantErr: "secretAccessKey",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := validAWSCredentials()
			tt.mutate(&creds)

			err := CheckFormat(creds)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var credErr *CredentialError
			require.ErrorAs(t, err, &credErr)
			assert.Equal(t, tt.wantErr, credErr.Field)
		})
	}

	t.Run("azure container format", func(t *testing.T) {
		creds := Credentials{
			Provider: ProviderAzure,
			Azure:    &AzureCredentials{AccountName: "myacct", AccountKey: "a2V5bWF0ZXJpYWxzZWNyZXQ=", Container: "Bad_Container"},
		}
		err := CheckFormat(creds)
		require.Error(t, err)

		var credErr *CredentialError
		require.ErrorAs(t, err, &credErr)
		assert.Equal(t, "container", credErr.Field)
	})
}
