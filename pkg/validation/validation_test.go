package validation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeKey(t *testing.T) {
	t.Run("lives under the probe prefix", func(t *testing.T) {
		key := ProbeKey()
		assert.True(t, strings.HasPrefix(key, ProbePrefix))
		assert.Len(t, strings.TrimPrefix(key, ProbePrefix), 32)
	})

	t.Run("unique per call", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			key := ProbeKey()
			require.False(t, seen[key], "duplicate probe key %s", key)
			seen[key] = true
		}
	})
}

func TestTrace(t *testing.T) {
	t.Run("records latencies per stage", func(t *testing.T) {
		trace := &Trace{}
		trace.Record(StageExistenceCheck, 120*time.Millisecond)
		trace.Record(StageWriteTest, 45*time.Millisecond)
		trace.Record(StageDeleteTest, 30*time.Millisecond)

		lat := trace.Latency()
		assert.Equal(t, int64(120), lat.ExistenceCheckMS)
		assert.Equal(t, int64(45), lat.WriteTestMS)
		assert.Equal(t, int64(30), lat.DeleteTestMS)
	})

	t.Run("unreached stages stay zero", func(t *testing.T) {
		trace := &Trace{}
		trace.Record(StageExistenceCheck, 50*time.Millisecond)

		lat := trace.Latency()
		assert.Equal(t, int64(50), lat.ExistenceCheckMS)
		assert.Zero(t, lat.WriteTestMS)
		assert.Zero(t, lat.DeleteTestMS)
	})

	t.Run("valid result carries granted permissions", func(t *testing.T) {
		trace := &Trace{}
		trace.Grant(PermissionRead)
		trace.Grant(PermissionWrite)
		trace.Grant(PermissionDelete)

		result := trace.Valid("my-bucket", "us-east-1")
		require.True(t, result.IsValid)
		require.NotNil(t, result.StorageInfo)
		assert.Nil(t, result.Error)
		assert.Equal(t, "my-bucket", result.StorageInfo.BucketName)
		assert.Equal(t, "us-east-1", result.StorageInfo.Region)
		assert.Equal(t, []string{"read", "write", "delete"}, result.StorageInfo.Permissions)
	})
}

func TestTraceInvalid(t *testing.T) {
	trace := &Trace{}
	trace.Record(StageExistenceCheck, 80*time.Millisecond)
	trace.Record(StageWriteTest, 45*time.Millisecond)

	result := trace.Invalid(Diagnostic{
		Code:    CodeInsufficientPermissions,
		Stage:   StageWriteTest,
		Message: "write forbidden",
	})

	require.False(t, result.IsValid)
	require.NotNil(t, result.Error)
	assert.Nil(t, result.StorageInfo)
	assert.Equal(t, int64(80), result.Error.Latency.ExistenceCheckMS)
	assert.Equal(t, int64(45), result.Error.Latency.WriteTestMS)
	assert.Zero(t, result.Error.Latency.DeleteTestMS, "unreached stage stays zero")
}

func TestInvalid(t *testing.T) {
	result := Invalid(Diagnostic{
		Code:        CodeBucketNotFound,
		Stage:       StageExistenceCheck,
		Message:     "bucket does not exist",
		Suggestions: []string{"check the bucket name"},
	})

	require.False(t, result.IsValid)
	require.NotNil(t, result.Error)
	assert.Nil(t, result.StorageInfo)
	assert.Equal(t, CodeBucketNotFound, result.Error.Code)
	assert.Equal(t, StageExistenceCheck, result.Error.Stage)
}

func TestResultJSONShape(t *testing.T) {
	t.Run("success omits error", func(t *testing.T) {
		trace := &Trace{}
		trace.Grant(PermissionRead)
		trace.Record(StageExistenceCheck, 10*time.Millisecond)

		raw, err := json.Marshal(trace.Valid("b", "r"))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, true, decoded["isValid"])
		assert.NotContains(t, decoded, "error")

		info, ok := decoded["storageInfo"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "b", info["bucketName"])

		lat, ok := info["latency"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(10), lat["existenceCheck"])
	})

	t.Run("failure omits storage info", func(t *testing.T) {
		raw, err := json.Marshal(Invalid(Diagnostic{Code: CodeInvalidCredentials, Stage: StageClientConstruction, Message: "bad key"}))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, false, decoded["isValid"])
		assert.NotContains(t, decoded, "storageInfo")

		diag, ok := decoded["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "INVALID_CREDENTIALS", diag["code"])
		assert.Equal(t, "client_construction", diag["stage"])
	})

	t.Run("failure reports the latencies of the stages that ran", func(t *testing.T) {
		trace := &Trace{}
		trace.Record(StageExistenceCheck, 80*time.Millisecond)
		trace.Record(StageWriteTest, 45*time.Millisecond)

		raw, err := json.Marshal(trace.Invalid(Diagnostic{Code: CodeInsufficientPermissions, Stage: StageWriteTest, Message: "write forbidden"}))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		diag, ok := decoded["error"].(map[string]any)
		require.True(t, ok)

		lat, ok := diag["latency"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(80), lat["existenceCheck"])
		assert.Equal(t, float64(45), lat["writeTest"])
		assert.Equal(t, float64(0), lat["deleteTest"])
	})
}
