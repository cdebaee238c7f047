// Package config loads runtime settings for the API, the worker and the
// local server: defaults first, then an optional JSON file, then the
// environment, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/logging"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	BlobS3     = "s3"
	BlobMemory = "memory"
)

// Config holds every tunable of the image pipeline.
//
// Fields:
//   - MetadataBackend: dynamodb, postgres or memory.
//   - MetadataTable / DynamoEndpoint: DynamoDB table and optional endpoint override.
//   - DatabaseDSN: PostgreSQL DSN (pgx), used by the postgres backend.
//   - BlobBackend / BlobBucket: object store kind and bucket.
//   - S3BaseEndpoint / S3AccessKey / S3SecretKey / S3UsePathStyle: S3-compatible overrides.
//   - CredentialExpiry: lifetime of presigned upload and download credentials.
//   - MaxUploadSize / DefaultPageSize: request limits.
//   - KeyPrefix / ThumbnailPrefix: object key namespaces.
//   - Thumbnail*: thumbnail bound, JPEG quality and largest source fetched.
//   - Retry*: backoff for store calls.
//   - StoreTimeout / MaxReceiveCount / WorkerConcurrency / ReportBatchItemFailures: worker knobs.
type Config struct {
	MetadataBackend string
	MetadataTable   string
	DynamoEndpoint  string
	DatabaseDSN     string

	BlobBackend    string
	BlobBucket     string
	AWSRegion      string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	CredentialExpiry time.Duration
	MaxUploadSize    int64
	DefaultPageSize  int
	KeyPrefix        string
	ThumbnailPrefix  string

	ThumbnailSize      int
	ThumbnailQuality   int
	ThumbnailMaxSource int64

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	StoreTimeout            time.Duration
	MaxReceiveCount         int
	WorkerConcurrency       int
	ReportBatchItemFailures bool

	HTTPAddr  string
	LogLevel  string
	LogFormat string
}

// LoadDefaults fills c with the production defaults. MetadataTable,
// BlobBucket and DatabaseDSN have no usable default.
func (c *Config) LoadDefaults() {
	c.MetadataBackend = BackendDynamoDB
	c.BlobBackend = BlobS3
	c.AWSRegion = "us-east-1"
	c.CredentialExpiry = 300 * time.Second
	c.MaxUploadSize = 20 << 20
	c.DefaultPageSize = 50
	c.KeyPrefix = "users"
	c.ThumbnailPrefix = "thumbnails"
	c.ThumbnailSize = 400
	c.ThumbnailQuality = 85
	c.ThumbnailMaxSource = 20 << 20
	c.RetryMaxAttempts = 5
	c.RetryBaseDelay = 200 * time.Millisecond
	c.RetryMaxDelay = 5 * time.Second
	c.StoreTimeout = 10 * time.Second
	c.MaxReceiveCount = 5
	c.WorkerConcurrency = 4
	c.HTTPAddr = ":8080"
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig applies defaults, the JSON file, the environment and flags,
// then validates the result.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.MetadataBackend {
	case BackendDynamoDB:
		if c.MetadataTable == "" {
			add("metadata table is required for the %s backend", BackendDynamoDB)
		}
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			add("database DSN is required for the %s backend", BackendPostgres)
		}
	case BackendMemory:
	default:
		add("unknown metadata backend %q", c.MetadataBackend)
	}

	switch c.BlobBackend {
	case BlobS3, BlobMemory:
	default:
		add("unknown blob backend %q", c.BlobBackend)
	}
	if c.BlobBucket == "" {
		add("blob bucket is required")
	}

	if c.CredentialExpiry <= 0 {
		add("credential expiry must be positive")
	}
	if c.MaxUploadSize <= 0 {
		add("max upload size must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > 1000 {
		add("default page size must be between 1 and 1000")
	}
	if c.KeyPrefix == "" || strings.Contains(c.KeyPrefix, "/") {
		add("key prefix must be a single non-empty path segment")
	}
	if c.ThumbnailPrefix == "" {
		add("thumbnail prefix is required")
	}
	if c.ThumbnailSize <= 0 {
		add("thumbnail size must be positive")
	}
	if c.ThumbnailQuality < 1 || c.ThumbnailQuality > 100 {
		add("thumbnail quality must be between 1 and 100")
	}
	if c.RetryMaxAttempts < 1 {
		add("retry max attempts must be at least 1")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		add("retry delays must satisfy 0 < base <= max")
	}
	if c.StoreTimeout <= 0 {
		add("store timeout must be positive")
	}
	if c.MaxReceiveCount < 1 {
		add("max receive count must be at least 1")
	}
	if c.WorkerConcurrency < 1 {
		add("worker concurrency must be at least 1")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		add("unknown log format %q", c.LogFormat)
	}

	return errors.Join(errs...)
}
