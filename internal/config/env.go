package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// parseEnv overlays the environment onto config. Unset or empty variables
// leave the current value alone; malformed ones are reported together.
func parseEnv(config *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	envString(&config.MetadataBackend, "METADATA_BACKEND")
	envString(&config.MetadataTable, "IMAGES_TABLE")
	envString(&config.DynamoEndpoint, "DYNAMODB_ENDPOINT")
	envString(&config.DatabaseDSN, "DATABASE_DSN")

	envString(&config.BlobBackend, "BLOB_BACKEND")
	envString(&config.BlobBucket, "IMAGES_BUCKET")
	envString(&config.AWSRegion, "AWS_REGION")
	envString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	envString(&config.S3AccessKey, "S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "S3_SECRET_KEY")
	collect(envBool(&config.S3UsePathStyle, "S3_USE_PATH_STYLE"))

	collect(envSeconds(&config.CredentialExpiry, "PRESIGNED_EXPIRES"))
	collect(envInt64(&config.MaxUploadSize, "MAX_UPLOAD_SIZE"))
	collect(envInt(&config.DefaultPageSize, "DEFAULT_PAGE_SIZE"))
	envString(&config.KeyPrefix, "KEY_PREFIX")
	envString(&config.ThumbnailPrefix, "THUMBNAIL_PREFIX")

	collect(envInt(&config.ThumbnailSize, "THUMBNAIL_SIZE"))
	collect(envInt(&config.ThumbnailQuality, "THUMBNAIL_QUALITY"))
	collect(envInt64(&config.ThumbnailMaxSource, "THUMBNAIL_MAX_SOURCE"))

	collect(envInt(&config.RetryMaxAttempts, "RETRY_MAX_ATTEMPTS"))
	collect(envDuration(&config.RetryBaseDelay, "RETRY_BASE_DELAY"))
	collect(envDuration(&config.RetryMaxDelay, "RETRY_MAX_DELAY"))

	collect(envDuration(&config.StoreTimeout, "STORE_TIMEOUT"))
	collect(envInt(&config.MaxReceiveCount, "MAX_RECEIVE_COUNT"))
	collect(envInt(&config.WorkerConcurrency, "WORKER_CONCURRENCY"))
	collect(envBool(&config.ReportBatchItemFailures, "REPORT_BATCH_ITEM_FAILURES"))

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.LogFormat, "LOG_FORMAT")

	return errors.Join(errs...)
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func envInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func envBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

// envDuration accepts Go duration strings such as 250ms or 10s.
func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}

// envSeconds accepts a plain number of seconds.
func envSeconds(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid number of seconds %q", key, v)
	}
	*dst = time.Duration(n) * time.Second
	return nil
}
