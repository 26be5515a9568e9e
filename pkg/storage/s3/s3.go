// Package s3 provides object storage for trial tables and cycle
// exports. Datasets are pushed to and fetched from an S3 (or
// S3-compatible) bucket under a configurable key prefix, so a lab can
// share normalized gait data without moving raw capture files around.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config holds S3 connection settings for a dataset bucket.
type Config struct {
	// Bucket is the bucket holding the dataset objects.
	Bucket string

	// Region is the AWS region of the bucket.
	Region string

	// Prefix is prepended to every object key. A trailing slash is
	// added when missing.
	Prefix string

	// Endpoint overrides the S3 endpoint for MinIO or other
	// S3-compatible stores. Empty uses AWS.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials. When
	// both are empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle forces path-style addressing, required by most
	// self-hosted S3 implementations.
	UsePathStyle bool

	// Timeout bounds a single object operation.
	Timeout time.Duration

	// PartSize is the chunk size for multipart uploads.
	PartSize int64
}

// DefaultConfig returns settings for a dataset bucket in the given
// region.
func DefaultConfig(bucket, region string) Config {
	return Config{
		Bucket:   bucket,
		Region:   region,
		Timeout:  5 * time.Minute,
		PartSize: 16 * 1024 * 1024,
	}
}

const minPartSize = 5 * 1024 * 1024

// ObjectInfo describes a stored dataset object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Client wraps an S3 client with dataset-oriented helpers.
type Client struct {
	api    *s3.Client
	cfg    Config
	prefix string
}

// NewClient builds a client from cfg, validating the bucket name and
// resolving credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.PartSize < minPartSize {
		cfg.PartSize = 16 * 1024 * 1024
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Client{api: api, cfg: cfg, prefix: prefix}, nil
}

// Key returns the full object key for a dataset-relative name.
func (c *Client) Key(name string) string {
	return c.prefix + strings.TrimPrefix(name, "/")
}

// Push uploads the file at localPath to the dataset under name.
// Large files use multipart upload.
func (c *Client) Push(ctx context.Context, localPath, name string) (ObjectInfo, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: open %s: %w", localPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: stat %s: %w", localPath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	key := c.Key(name)
	if fi.Size() < c.cfg.PartSize {
		_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(c.cfg.Bucket),
			Key:           aws.String(key),
			Body:          f,
			ContentLength: aws.Int64(fi.Size()),
		})
		if err != nil {
			return ObjectInfo{}, fmt.Errorf("storage: put %s: %w", key, err)
		}
	} else if err := c.pushMultipart(ctx, f, key); err != nil {
		return ObjectInfo{}, err
	}

	return c.Stat(ctx, name)
}

func (c *Client) pushMultipart(ctx context.Context, r io.Reader, key string) error {
	create, err := c.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: create multipart %s: %w", key, err)
	}
	uploadID := create.UploadId

	abort := func() {
		_, _ = c.api.AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(c.cfg.Bucket),
			Key:      aws.String(key),
			UploadId: uploadID,
		})
	}

	var completed []types.CompletedPart
	buf := make([]byte, c.cfg.PartSize)
	for partNum := int32(1); ; partNum++ {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			out, err := c.api.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:        aws.String(c.cfg.Bucket),
				Key:           aws.String(key),
				UploadId:      uploadID,
				PartNumber:    aws.Int32(partNum),
				Body:          bytes.NewReader(buf[:n]),
				ContentLength: aws.Int64(int64(n)),
			})
			if err != nil {
				abort()
				return fmt.Errorf("storage: upload part %d of %s: %w", partNum, key, err)
			}
			completed = append(completed, types.CompletedPart{
				ETag:       out.ETag,
				PartNumber: aws.Int32(partNum),
			})
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			abort()
			return fmt.Errorf("storage: read part %d for %s: %w", partNum, key, readErr)
		}
	}

	_, err = c.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(c.cfg.Bucket),
		Key:      aws.String(key),
		UploadId: uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		abort()
		return fmt.Errorf("storage: complete multipart %s: %w", key, err)
	}
	return nil
}

// Fetch downloads the dataset object name to localPath. The file is
// written to a temporary sibling first and renamed into place.
func (c *Client) Fetch(ctx context.Context, name, localPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	key := c.Key(name)
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer out.Body.Close()

	dir := filepath.Dir(localPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}

	tmp := localPath + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: download %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: rename %s: %w", tmp, err)
	}
	return nil
}

// Open returns a reader over the dataset object name. The caller must
// close it.
func (c *Client) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := c.Key(name)
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return out.Body, nil
}

// Stat returns metadata for the dataset object name.
func (c *Client) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	key := c.Key(name)
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: head %s: %w", key, err)
	}
	info := ObjectInfo{Key: key}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, `"`)
	}
	return info, nil
}

// Exists reports whether the dataset object name is present.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	_, err := c.Stat(ctx, name)
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns objects under the dataset prefix, newest first. An
// empty pattern lists everything; otherwise pattern is matched as a
// key-name prefix below the dataset prefix.
func (c *Client) List(ctx context.Context, pattern string) ([]ObjectInfo, error) {
	prefix := c.prefix
	if pattern != "" {
		prefix = c.Key(pattern)
	}

	var infos []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{}
			if obj.Key != nil {
				info.Key = *obj.Key
			}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			if obj.ETag != nil {
				info.ETag = strings.Trim(*obj.ETag, `"`)
			}
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})
	return infos, nil
}

// Delete removes the dataset object name.
func (c *Client) Delete(ctx context.Context, name string) error {
	key := c.Key(name)
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
