package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/flagx"
)

// parseFlags overlays the command-line flags handled here onto config.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address for cmd/server (e.g. ":8080")
//	-m string   metadata backend: dynamodb, postgres or memory
//	-t string   DynamoDB table
//	-d string   PostgreSQL DSN
//	-o string   blob backend: s3 or memory
//	-b string   bucket
//	-g string   AWS region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000")
//	-x int      credential expiry, seconds
//	-l string   log level
//
// Only these flags are picked out of os.Args, so cmds may define their own.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-t", "-d", "-o", "-b", "-g", "-e", "-x", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.MetadataTable, "t", config.MetadataTable, "DynamoDB table")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend")
	fs.StringVar(&config.BlobBucket, "b", config.BlobBucket, "bucket")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	expiry := fs.Int("x", int(config.CredentialExpiry.Seconds()), "credential expiry (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.CredentialExpiry = time.Duration(*expiry) * time.Second
	return nil
}
