// Package s3filesystem provides a filesystem that stores artifacts as S3 objects.
//
// Paths have the form s3://bucket/key. Directories are implicit.
package s3filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/user/vidsprite/pkg/ports"
)

// Scheme prefixes every path handled by this filesystem.
const Scheme = "s3://"

// ErrInvalidPath is returned for paths that are not s3://bucket/key.
var ErrInvalidPath = errors.New("s3filesystem: invalid path")

// ObjectAPI is the subset of the S3 client used by FileSystem.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// FileSystem implements ports.FileSystem on top of S3.
type FileSystem struct {
	ctx    context.Context
	client ObjectAPI
}

// New creates a FileSystem using client. ctx bounds every request.
func New(ctx context.Context, client ObjectAPI) *FileSystem {
	return &FileSystem{ctx: ctx, client: client}
}

// NewFromDefaultConfig creates a FileSystem from the default AWS credential chain.
func NewFromDefaultConfig(ctx context.Context) (*FileSystem, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(ctx, s3.NewFromConfig(cfg)), nil
}

// IsS3Path reports whether p addresses an S3 object.
func IsS3Path(p string) bool {
	return strings.HasPrefix(p, Scheme)
}

// ParsePath splits s3://bucket/key into bucket and key.
func ParsePath(p string) (bucket, key string, err error) {
	if !IsS3Path(p) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(p, Scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q has no bucket", ErrInvalidPath, p)
	}
	return bucket, key, nil
}

// ContentType returns the MIME type stored with an object.
func ContentType(key string) string {
	switch ext := strings.ToLower(path.Ext(key)); ext {
	case ".vtt":
		return "text/vtt"
	case ".jpeg", ".jpg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	case ".json":
		return "application/json"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}

// ReadFile downloads an object.
func (fs *FileSystem) ReadFile(p string) ([]byte, error) {
	bucket, key, err := ParsePath(p)
	if err != nil {
		return nil, err
	}
	out, err := fs.client.GetObject(fs.ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// WriteFile uploads data as a single object.
func (fs *FileSystem) WriteFile(p string, data []byte) error {
	bucket, key, err := ParsePath(p)
	if err != nil {
		return err
	}
	_, err = fs.client.PutObject(fs.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(ContentType(key)),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", p, err)
	}
	return nil
}

// MkdirAll is a no-op; S3 has no directories.
func (fs *FileSystem) MkdirAll(p string) error {
	_, _, err := ParsePath(p)
	return err
}

// Remove deletes an object.
func (fs *FileSystem) Remove(p string) error {
	bucket, key, err := ParsePath(p)
	if err != nil {
		return err
	}
	if _, err := fs.client.DeleteObject(fs.ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// Join joins key elements with "/", keeping the s3:// prefix of the first element.
func (fs *FileSystem) Join(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	if !IsS3Path(elem[0]) {
		return path.Join(elem...)
	}
	parts := append([]string{strings.TrimPrefix(elem[0], Scheme)}, elem[1:]...)
	return Scheme + path.Join(parts...)
}

var _ ports.FileSystem = (*FileSystem)(nil)
