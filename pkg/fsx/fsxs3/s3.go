package fsxs3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/relay-labs/chatrelay/pkg/fsx"
)

// S3FileSystem implements fsx.FileSystem and fsx.PresignedURLGenerator
// on an S3 bucket. Keys are the fsx paths with a leading slash stripped.
type S3FileSystem struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// Option configures an S3FileSystem
type Option func(*S3FileSystem)

// WithPrefix namespaces all keys under a fixed prefix
func WithPrefix(prefix string) Option {
	return func(fs *S3FileSystem) {
		fs.prefix = strings.Trim(prefix, "/")
	}
}

// NewS3FileSystem loads the default AWS config (env, shared config,
// instance role) and targets the given bucket.
func NewS3FileSystem(ctx context.Context, bucket string, opts ...Option) (*S3FileSystem, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3FileSystemWithClient(s3.NewFromConfig(cfg), bucket, opts...), nil
}

// NewS3FileSystemWithClient wraps an existing client, for tests and
// S3-compatible endpoints.
func NewS3FileSystemWithClient(client *s3.Client, bucket string, opts ...Option) *S3FileSystem {
	fs := &S3FileSystem{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

func (fs *S3FileSystem) ReadFile(ctx context.Context, filePath string) ([]byte, error) {
	body, err := fs.ReadFileStream(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

func (fs *S3FileSystem) ReadFileStream(ctx context.Context, filePath string) (io.ReadCloser, error) {
	out, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(filePath)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return out.Body, nil
}

func (fs *S3FileSystem) Stat(ctx context.Context, filePath string) (fsx.FileInfo, error) {
	out, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(filePath)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fsx.FileInfo{}, fmt.Errorf("file not found: %s", filePath)
		}
		return fsx.FileInfo{}, fmt.Errorf("failed to head object: %w", err)
	}

	info := fsx.FileInfo{
		Name:        path.Base(filePath),
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		Metadata:    out.Metadata,
	}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
	}
	return info, nil
}

func (fs *S3FileSystem) List(ctx context.Context, dirPath string) ([]fsx.FileInfo, error) {
	prefix := fs.key(dirPath)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var infos []fsx.FileInfo
	paginator := s3.NewListObjectsV2Paginator(fs.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(fs.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, cp := range page.CommonPrefixes {
			infos = append(infos, fsx.FileInfo{
				Name:  path.Base(strings.TrimSuffix(aws.ToString(cp.Prefix), "/")),
				IsDir: true,
			})
		}
		for _, obj := range page.Contents {
			info := fsx.FileInfo{
				Name: path.Base(aws.ToString(obj.Key)),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.ModTime = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}

	return infos, nil
}

func (fs *S3FileSystem) Exists(ctx context.Context, filePath string) (bool, error) {
	_, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(filePath)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

func (fs *S3FileSystem) WriteFile(ctx context.Context, filePath string, data []byte) error {
	return fs.WriteFileStream(ctx, filePath, bytes.NewReader(data))
}

func (fs *S3FileSystem) WriteFileStream(ctx context.Context, filePath string, r io.Reader) error {
	_, err := fs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(filePath)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (fs *S3FileSystem) DeleteFile(ctx context.Context, filePath string) error {
	_, err := fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(filePath)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (fs *S3FileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

func (fs *S3FileSystem) GetPresignedDownloadURL(ctx context.Context, filePath string, expiration time.Duration) (string, error) {
	req, err := fs.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(filePath)),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

func (fs *S3FileSystem) GetPresignedUploadURL(ctx context.Context, filePath string, expiration time.Duration) (string, error) {
	req, err := fs.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(filePath)),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, nil
}

// key maps an fsx path to an object key under the configured prefix
func (fs *S3FileSystem) key(filePath string) string {
	cleaned := strings.TrimPrefix(path.Clean("/"+filePath), "/")
	if fs.prefix == "" {
		return cleaned
	}
	if cleaned == "" {
		return fs.prefix
	}
	return fs.prefix + "/" + cleaned
}
