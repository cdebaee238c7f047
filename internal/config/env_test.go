package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Setenv("IMAGES_TABLE", "images")
	t.Setenv("IMAGES_BUCKET", "bucket")
	t.Setenv("PRESIGNED_EXPIRES", "600")
	t.Setenv("DEFAULT_PAGE_SIZE", "25")
	t.Setenv("MAX_UPLOAD_SIZE", "1048576")
	t.Setenv("RETRY_BASE_DELAY", "50ms")
	t.Setenv("REPORT_BATCH_ITEM_FAILURES", "true")
	t.Setenv("S3_USE_PATH_STYLE", "1")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "images", cfg.MetadataTable)
	assert.Equal(t, "bucket", cfg.BlobBucket)
	assert.Equal(t, 10*time.Minute, cfg.CredentialExpiry)
	assert.Equal(t, 25, cfg.DefaultPageSize)
	assert.Equal(t, int64(1<<20), cfg.MaxUploadSize)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBaseDelay)
	assert.True(t, cfg.ReportBatchItemFailures)
	assert.True(t, cfg.S3UsePathStyle)
	assert.Equal(t, "http://localhost:8000", cfg.DynamoEndpoint)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
}

func Test_parseEnv_Malformed(t *testing.T) {
	t.Setenv("PRESIGNED_EXPIRES", "5m")
	t.Setenv("WORKER_CONCURRENCY", "many")
	t.Setenv("REPORT_BATCH_ITEM_FAILURES", "sometimes")

	err := parseEnv(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRESIGNED_EXPIRES")
	assert.Contains(t, err.Error(), "WORKER_CONCURRENCY")
	assert.Contains(t, err.Error(), "REPORT_BATCH_ITEM_FAILURES")
}
