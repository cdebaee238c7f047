package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/flagx"
	"github.com/dmitrijs2005/imagevault/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Pointer fields distinguish an
// absent key from a zero value, so a partial file only overrides what it
// names. Durations accept "300s" or integer nanoseconds.
type JsonConfig struct {
	MetadataBackend *string `json:"metadata_backend"`
	MetadataTable   *string `json:"metadata_table"`
	DynamoEndpoint  *string `json:"dynamodb_endpoint"`
	DatabaseDSN     *string `json:"database_dsn"`

	BlobBackend    *string `json:"blob_backend"`
	BlobBucket     *string `json:"blob_bucket"`
	AWSRegion      *string `json:"aws_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`
	S3AccessKey    *string `json:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key"`
	S3UsePathStyle *bool   `json:"s3_use_path_style"`

	CredentialExpiry *timex.Duration `json:"credential_expiry"`
	MaxUploadSize    *int64          `json:"max_upload_size"`
	DefaultPageSize  *int            `json:"default_page_size"`
	KeyPrefix        *string         `json:"key_prefix"`
	ThumbnailPrefix  *string         `json:"thumbnail_prefix"`

	ThumbnailSize      *int   `json:"thumbnail_size"`
	ThumbnailQuality   *int   `json:"thumbnail_quality"`
	ThumbnailMaxSource *int64 `json:"thumbnail_max_source"`

	RetryMaxAttempts *int            `json:"retry_max_attempts"`
	RetryBaseDelay   *timex.Duration `json:"retry_base_delay"`
	RetryMaxDelay    *timex.Duration `json:"retry_max_delay"`

	StoreTimeout            *timex.Duration `json:"store_timeout"`
	MaxReceiveCount         *int            `json:"max_receive_count"`
	WorkerConcurrency       *int            `json:"worker_concurrency"`
	ReportBatchItemFailures *bool           `json:"report_batch_item_failures"`

	HTTPAddr  *string `json:"http_addr"`
	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`
}

// parseJson overlays the file named by -c/-config or IMAGES_CONFIG onto
// config. No path means nothing to load.
func parseJson(config *Config) error {
	path := flagx.ConfigFile()
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	set(&config.MetadataBackend, c.MetadataBackend)
	set(&config.MetadataTable, c.MetadataTable)
	set(&config.DynamoEndpoint, c.DynamoEndpoint)
	set(&config.DatabaseDSN, c.DatabaseDSN)

	set(&config.BlobBackend, c.BlobBackend)
	set(&config.BlobBucket, c.BlobBucket)
	set(&config.AWSRegion, c.AWSRegion)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.S3AccessKey, c.S3AccessKey)
	set(&config.S3SecretKey, c.S3SecretKey)
	set(&config.S3UsePathStyle, c.S3UsePathStyle)

	setDuration(&config.CredentialExpiry, c.CredentialExpiry)
	set(&config.MaxUploadSize, c.MaxUploadSize)
	set(&config.DefaultPageSize, c.DefaultPageSize)
	set(&config.KeyPrefix, c.KeyPrefix)
	set(&config.ThumbnailPrefix, c.ThumbnailPrefix)

	set(&config.ThumbnailSize, c.ThumbnailSize)
	set(&config.ThumbnailQuality, c.ThumbnailQuality)
	set(&config.ThumbnailMaxSource, c.ThumbnailMaxSource)

	set(&config.RetryMaxAttempts, c.RetryMaxAttempts)
	setDuration(&config.RetryBaseDelay, c.RetryBaseDelay)
	setDuration(&config.RetryMaxDelay, c.RetryMaxDelay)

	setDuration(&config.StoreTimeout, c.StoreTimeout)
	set(&config.MaxReceiveCount, c.MaxReceiveCount)
	set(&config.WorkerConcurrency, c.WorkerConcurrency)
	set(&config.ReportBatchItemFailures, c.ReportBatchItemFailures)

	set(&config.HTTPAddr, c.HTTPAddr)
	set(&config.LogLevel, c.LogLevel)
	set(&config.LogFormat, c.LogFormat)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
