package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// DefaultPresignExpiry is the validity window for presigned GET URLs.
const DefaultPresignExpiry = 3600 * time.Second

// S3API abstracts the S3 operations used by S3Source. The s3.Client
// type satisfies it.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Source generates presigned GET URLs for objects in one bucket.
// Works against AWS S3 or any S3-compatible store (MinIO, R2) via a
// custom endpoint.
type S3Source struct {
	client    S3API
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// S3Config holds configuration for the S3 byte source.
type S3Config struct {
	// Bucket is the bucket assets are read from. Required.
	Bucket string

	// Region is the bucket's region.
	Region string

	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	// Optional.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials. Optional;
	// when empty the SDK's default credential chain applies.
	AccessKeyID     string
	SecretAccessKey string

	// PresignExpiry is the validity window for generated URLs.
	// Defaults to DefaultPresignExpiry if zero.
	PresignExpiry time.Duration
}

// NewS3Source creates an S3 byte source with its own pre-configured
// client.
func NewS3Source(c S3Config) (*S3Source, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client := s3.NewFromConfig(aws.Config{Region: c.Region}, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		if c.AccessKeyID != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")
		}
	})

	expiry := c.PresignExpiry
	if expiry == 0 {
		expiry = DefaultPresignExpiry
	}

	return &S3Source{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    c.Bucket,
		expiry:    expiry,
	}, nil
}

// PresignGet checks the object exists, then returns a time-limited GET
// URL for it. A missing key maps to os.ErrNotExist wrapped in ErrFetch.
func (s *S3Source) PresignGet(ctx context.Context, key string) (string, error) {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isS3NotFound(err) {
			return "", fmt.Errorf("%w: s3 object %s: %s", ErrFetch, key, os.ErrNotExist)
		}
		return "", fmt.Errorf("%w: heading s3 object %s: %v", ErrFetch, key, err)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("%w: presigning s3 object %s: %v", ErrFetch, key, err)
	}

	return req.URL, nil
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
