// Package awsx loads the shared aws.Config used by the S3 and DynamoDB clients.
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

// Options selects region and, optionally, static credentials. With no access
// key the default credential chain (env, shared profile, role) is used.
type Options struct {
	Region    string
	AccessKey string
	SecretKey string
}

// Load resolves an aws.Config for opts.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	var fns []func(*config.LoadOptions) error
	if opts.Region != "" {
		fns = append(fns, config.WithRegion(opts.Region))
	}
	if p := StaticCredentials(opts.AccessKey, opts.SecretKey); p != nil {
		fns = append(fns, config.WithCredentialsProvider(p))
	}
	return loadDefaultAWSConfig(ctx, fns...)
}

// StaticCredentials returns a fixed provider, or nil when accessKey is empty.
func StaticCredentials(accessKey, secretKey string) aws.CredentialsProvider {
	if accessKey == "" {
		return nil
	}
	return credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
}
