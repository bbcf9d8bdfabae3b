package pathkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToProviderKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "strips marker", input: "imaginary://docs/report.pdf", want: "docs/report.pdf"},
		{name: "root only", input: "imaginary://", want: ""},
		{name: "missing marker fails", input: "docs/report.pdf", wantErr: true},
		{name: "empty fails", input: "", wantErr: true},
		{name: "marker mid-string fails", input: "docs/imaginary://x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToProviderKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToStoredPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "adds marker", input: "docs/report.pdf", want: "imaginary://docs/report.pdf"},
		{name: "empty key", input: "", want: "imaginary://"},
		{name: "double apply fails", input: "imaginary://docs/report.pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToStoredPath(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	stored := "imaginary://a/b/c.txt"
	key, err := ToProviderKey(stored)
	require.NoError(t, err)

	back, err := ToStoredPath(key)
	require.NoError(t, err)
	assert.Equal(t, stored, back)

	// A second strip of the derived key must fail, not silently no-op.
	_, err = ToProviderKey(key)
	require.Error(t, err)
}

func TestIsStoredPath(t *testing.T) {
	assert.True(t, IsStoredPath("imaginary://x"))
	assert.False(t, IsStoredPath("x"))
	assert.False(t, IsStoredPath(""))
}
