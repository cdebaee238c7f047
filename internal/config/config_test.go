package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendDynamoDB, c.MetadataBackend)
	assert.Equal(t, BlobS3, c.BlobBackend)
	assert.Equal(t, "us-east-1", c.AWSRegion)
	assert.Equal(t, 300*time.Second, c.CredentialExpiry)
	assert.Equal(t, int64(20<<20), c.MaxUploadSize)
	assert.Equal(t, 50, c.DefaultPageSize)
	assert.Equal(t, "users", c.KeyPrefix)
	assert.Equal(t, "thumbnails", c.ThumbnailPrefix)
	assert.Equal(t, 400, c.ThumbnailSize)
	assert.Equal(t, 85, c.ThumbnailQuality)
	assert.Equal(t, 5, c.RetryMaxAttempts)
	assert.Equal(t, 200*time.Millisecond, c.RetryBaseDelay)
	assert.Equal(t, 5*time.Second, c.RetryMaxDelay)
	assert.Equal(t, 10*time.Second, c.StoreTimeout)
	assert.Equal(t, 5, c.MaxReceiveCount)
	assert.Equal(t, 4, c.WorkerConcurrency)
	assert.False(t, c.ReportBatchItemFailures)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)

	assert.Error(t, c.Validate(), "defaults alone lack table and bucket")
}

func validConfig() *Config {
	c := &Config{}
	c.LoadDefaults()
	c.MetadataTable = "images"
	c.BlobBucket = "images-bucket"
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "valid", mutate: func(c *Config) {}, ok: true},
		{name: "memory backend needs no table", mutate: func(c *Config) { c.MetadataBackend = BackendMemory; c.MetadataTable = "" }, ok: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.MetadataBackend = BackendPostgres }},
		{name: "postgres with dsn", mutate: func(c *Config) { c.MetadataBackend = BackendPostgres; c.DatabaseDSN = "postgres://x" }, ok: true},
		{name: "dynamodb without table", mutate: func(c *Config) { c.MetadataTable = "" }},
		{name: "unknown backend", mutate: func(c *Config) { c.MetadataBackend = "mongo" }},
		{name: "unknown blob backend", mutate: func(c *Config) { c.BlobBackend = "gcs" }},
		{name: "missing bucket", mutate: func(c *Config) { c.BlobBucket = "" }},
		{name: "zero expiry", mutate: func(c *Config) { c.CredentialExpiry = 0 }},
		{name: "page size too big", mutate: func(c *Config) { c.DefaultPageSize = 1001 }},
		{name: "nested key prefix", mutate: func(c *Config) { c.KeyPrefix = "a/b" }},
		{name: "quality out of range", mutate: func(c *Config) { c.ThumbnailQuality = 0 }},
		{name: "max delay below base", mutate: func(c *Config) { c.RetryMaxDelay = time.Millisecond }},
		{name: "zero concurrency", mutate: func(c *Config) { c.WorkerConcurrency = 0 }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	c := validConfig()
	c.BlobBucket = ""
	c.WorkerConcurrency = 0

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
	assert.Contains(t, err.Error(), "concurrency")
}

func TestLoadConfig_Layers(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"metadata_table":     "from-json",
		"blob_bucket":        "json-bucket",
		"worker_concurrency": 8,
	})
	t.Setenv("IMAGES_CONFIG", "")
	t.Setenv("IMAGES_TABLE", "")
	t.Setenv("IMAGES_BUCKET", "env-bucket")
	os.Args = []string{"testbin", "-c", path, "-b", "flag-bucket"}

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-json", c.MetadataTable)
	assert.Equal(t, "flag-bucket", c.BlobBucket)
	assert.Equal(t, 8, c.WorkerConcurrency)
	assert.Equal(t, 85, c.ThumbnailQuality)
}

func TestLoadConfig_InvalidFails(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Setenv("IMAGES_CONFIG", "")
	t.Setenv("IMAGES_TABLE", "")
	t.Setenv("IMAGES_BUCKET", "")
	os.Args = []string{"testbin"}

	_, err := LoadConfig()
	assert.Error(t, err)
}
