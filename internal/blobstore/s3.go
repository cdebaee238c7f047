package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/imagevault/internal/awsx"
	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/models"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of *s3.PresignClient used by S3Store.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPostObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error)
}

// S3Options configures the S3 client. BaseEndpoint and UsePathStyle are
// meant for S3-compatible backends such as MinIO.
type S3Options struct {
	Bucket       string
	BaseEndpoint string
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
}

// S3Store implements Store on Amazon S3.
type S3Store struct {
	bucket    string
	client    S3API
	presigner Presigner
	now       func() time.Time
}

var newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
	return s3.NewFromConfig(cfg, optFns...)
}

// NewS3Store builds an S3Store from a resolved aws.Config.
func NewS3Store(cfg aws.Config, opts S3Options) *S3Store {
	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		if p := awsx.StaticCredentials(opts.AccessKey, opts.SecretKey); p != nil {
			o.Credentials = p
		}
	})
	return NewS3StoreWithClients(opts.Bucket, client, s3.NewPresignClient(client))
}

// NewS3StoreWithClients wires explicit clients; used by tests.
func NewS3StoreWithClients(bucket string, client S3API, presigner Presigner) *S3Store {
	return &S3Store{bucket: bucket, client: client, presigner: presigner, now: time.Now}
}

// Bucket returns the bucket name.
func (s *S3Store) Bucket() string { return s.bucket }

func (s *S3Store) Head(ctx context.Context, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, classify("s3.HeadObject", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify("s3.GetObject", key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, common.Dependency("s3.GetObject", fmt.Errorf("read body: %w", err))
	}
	return b, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return common.Dependency("s3.PutObject", err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return common.Dependency("s3.DeleteObject", err)
	}
	return nil
}

// PresignUpload issues a POST policy bound to req.Key that pins the
// Content-Type and limits the body to 1..MaxSize bytes.
func (s *S3Store) PresignUpload(ctx context.Context, req UploadRequest) (*models.UploadCredential, error) {
	expiresAt := s.now().UTC().Add(req.Expiry)

	out, err := s.presigner.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(req.Key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = req.Expiry
		o.Conditions = []interface{}{
			map[string]string{"Content-Type": req.ContentType},
			[]interface{}{"content-length-range", 1, req.MaxSize},
		}
	})
	if err != nil {
		return nil, common.Dependency("s3.PresignPostObject", err)
	}

	fields := make(map[string]string, len(out.Values)+1)
	for k, v := range out.Values {
		fields[k] = v
	}
	fields["Content-Type"] = req.ContentType

	return &models.UploadCredential{
		URL:       out.URL,
		Fields:    fields,
		ObjectKey: req.Key,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *S3Store) PresignDownload(ctx context.Context, key string, expiry time.Duration) (*models.DownloadCredential, error) {
	expiresAt := s.now().UTC().Add(expiry)

	out, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, common.Dependency("s3.PresignGetObject", err)
	}
	return &models.DownloadCredential{URL: out.URL, ExpiresAt: expiresAt}, nil
}

func classify(op, key string, err error) error {
	if isNotFound(err) {
		return &common.Error{Kind: common.ErrNotFound, Op: op, Message: "object " + key + " not found", Err: err}
	}
	return common.Dependency(op, err)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch strings.TrimSpace(apiErr.ErrorCode()) {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

var _ Store = (*S3Store)(nil)
