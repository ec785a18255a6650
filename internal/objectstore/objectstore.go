// Package objectstore is the byte-range GET interface the grid processor
// consumes to fetch chunk bytes out of the sharded array files, plus a
// prefix listing operation (List). No package in this module calls List;
// the warmer takes its targets from its configuration.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/weatherwx/tileserve/internal/tileerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Client is the object-store surface the grid processor depends on.
// Implementations: *S3Client for production, *MemClient for tests.
type Client interface {
	// Get returns the full object at path.
	Get(ctx context.Context, path string) ([]byte, error)
	// GetRange returns bytes [start, end) of the object at path.
	GetRange(ctx context.Context, path string, start, end int64) ([]byte, error)
	// List returns all object paths under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// S3Client is the production Client backed by AWS S3.
type S3Client struct {
	s3     *s3.Client
	bucket string
}

// NewS3Client constructs an S3Client for the given bucket, loading AWS
// credentials and region from the environment/default credential chain.
func NewS3Client(ctx context.Context, bucket, region string) (*S3Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, tileerr.New(tileerr.PermanentIO, "objectstore.NewS3Client", err)
	}
	return &S3Client{s3: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (c *S3Client) Get(ctx context.Context, path string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, classifyS3Error("objectstore.Get", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, tileerr.New(tileerr.TransientIO, "objectstore.Get", err)
	}
	return data, nil
}

// GetRange fetches bytes [start, end) via an S3 Range header, the standard
// way to retrieve a single chunk's bytes from a larger sharded array file.
func (c *S3Client) GetRange(ctx context.Context, path string, start, end int64) ([]byte, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", start, end-1)
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, classifyS3Error("objectstore.GetRange", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, tileerr.New(tileerr.TransientIO, "objectstore.GetRange", err)
	}
	return data, nil
}

func (c *S3Client) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error("objectstore.List", err)
		}
		for _, obj := range page.Contents {
			paths = append(paths, aws.ToString(obj.Key))
		}
	}
	return paths, nil
}

// classifyS3Error maps an AWS SDK error to a tileerr.Kind: a missing key
// is NotFound, anything else from the wire is a TransientIO worth one
// retry at the call site.
func classifyS3Error(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return tileerr.New(tileerr.NotFound, op, err)
		}
	}
	return tileerr.New(tileerr.TransientIO, op, err)
}
