package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv("IMAGES_CONFIG", "")

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"metadata_backend":           "postgres",
		"database_dsn":               "postgres://localhost/images",
		"blob_bucket":                "bucket",
		"s3_base_endpoint":           "http://127.0.0.1:9000",
		"s3_use_path_style":          true,
		"credential_expiry":          "2m",
		"max_upload_size":            1024,
		"retry_base_delay":           1000000,
		"store_timeout":              "3s",
		"report_batch_item_failures": true,
		"log_format":                 "text",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg))

		assert.Equal(t, BackendPostgres, cfg.MetadataBackend)
		assert.Equal(t, "postgres://localhost/images", cfg.DatabaseDSN)
		assert.Equal(t, "bucket", cfg.BlobBucket)
		assert.Equal(t, "http://127.0.0.1:9000", cfg.S3BaseEndpoint)
		assert.True(t, cfg.S3UsePathStyle)
		assert.Equal(t, 2*time.Minute, cfg.CredentialExpiry)
		assert.Equal(t, int64(1024), cfg.MaxUploadSize)
		assert.Equal(t, time.Millisecond, cfg.RetryBaseDelay)
		assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
		assert.True(t, cfg.ReportBatchItemFailures)
		assert.Equal(t, "text", cfg.LogFormat)

		// keys absent from the file keep their defaults
		assert.Equal(t, "users", cfg.KeyPrefix)
		assert.Equal(t, 5*time.Second, cfg.RetryMaxDelay)
	})

	t.Run("env var names the file", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("IMAGES_CONFIG", pathFlag)

		cfg := &Config{}
		require.NoError(t, parseJson(cfg))
		assert.Equal(t, "bucket", cfg.BlobBucket)
	})

	t.Run("no config and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{BlobBucket: "kept", StoreTimeout: time.Second}
		require.NoError(t, parseJson(cfg))

		assert.Equal(t, "kept", cfg.BlobBucket)
		assert.Equal(t, time.Second, cfg.StoreTimeout)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		assert.Error(t, parseJson(&Config{}))
	})

	t.Run("missing file → error", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "absent.json")}
		assert.Error(t, parseJson(&Config{}))
	})
}
