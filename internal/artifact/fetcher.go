// Package artifact fetches the prebuilt index artifacts (vector table and
// chunk metadata) that the server loads at startup.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Fetcher retrieves a named artifact as raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FileFetcher reads artifacts from the local filesystem. Names are paths,
// absolute or relative to the working directory.
type FileFetcher struct{}

func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

func (f *FileFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return data, nil
}

// S3FetcherConfig holds configuration for S3Fetcher.
type S3FetcherConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool

	// CacheDir, when set, keeps a local copy of each downloaded artifact
	// so restarts do not re-download unchanged indexes.
	CacheDir string
}

// S3Fetcher downloads artifacts from S3-compatible storage (e.g., RustFS,
// MinIO) with an optional local cache.
type S3Fetcher struct {
	client   *s3.Client
	bucket   string
	cacheDir string
}

// NewS3Fetcher creates an S3Fetcher with the given configuration.
func NewS3Fetcher(ctx context.Context, cfg S3FetcherConfig) (*S3Fetcher, error) {
	// Custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Fetcher{
		client:   client,
		bucket:   cfg.Bucket,
		cacheDir: cfg.CacheDir,
	}, nil
}

// Fetch downloads the object, serving from the local cache when a copy
// exists.
func (f *S3Fetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	if f.cacheDir != "" {
		if data, err := os.ReadFile(f.cachePath(key)); err == nil {
			log.Printf("Artifact %s served from cache", key)
			return data, nil
		}
	}

	output, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", key, err)
	}

	if f.cacheDir != "" {
		if err := f.writeCache(key, data); err != nil {
			// A failed cache write is not fatal; the bytes are in hand.
			log.Printf("Failed to cache artifact %s: %v", key, err)
		}
	}

	return data, nil
}

func (f *S3Fetcher) cachePath(key string) string {
	return filepath.Join(f.cacheDir, strings.ReplaceAll(key, "/", "_"))
}

func (f *S3Fetcher) writeCache(key string, data []byte) error {
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.cachePath(key), data, 0o644)
}
