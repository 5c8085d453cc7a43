// Package s3fs exposes an S3 bucket, or a key prefix inside it, as a
// read only fs.FS so it can back a static route.
//
// Directories are implied by key prefixes: a name is a directory when
// no object has that exact key but at least one key starts with
// "name/".
package s3fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Client is the subset of the S3 API the file system uses.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds the connection settings for New.
type Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"` // custom endpoint for MinIO or other S3-compatible services
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// FS is a read only fs.FS over an S3 bucket.
type FS struct {
	client Client
	bucket string
	prefix string
}

// New loads the AWS configuration and returns a file system over cfg.Bucket.
func New(ctx context.Context, cfg Config) (*FS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	var optFuncs []func(*config.LoadOptions) error
	if cfg.Region != "" {
		optFuncs = append(optFuncs, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFuncs = append(optFuncs, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFuncs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient returns a file system using an existing client.
func NewWithClient(client Client, bucket, prefix string) *FS {
	return &FS{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (f *FS) key(name string) string {
	if name == "." {
		return f.prefix
	}
	if f.prefix == "" {
		return name
	}
	return f.prefix + "/" + name
}

// Stat implements fs.StatFS.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	return f.StatContext(context.Background(), name)
}

// StatContext is Stat bound to ctx, so lookups end with the request.
func (f *FS) StatContext(ctx context.Context, name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return dirInfo{name: "."}, nil
	}

	key := f.key(name)
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return fileInfo{
			name:    path.Base(name),
			size:    aws.ToInt64(out.ContentLength),
			modTime: aws.ToTime(out.LastModified),
		}, nil
	}
	if !isNotFound(err) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	list, err := f.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(f.bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if len(list.Contents) > 0 || aws.ToInt32(list.KeyCount) > 0 {
		return dirInfo{name: path.Base(name)}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// Open implements fs.FS.
func (f *FS) Open(name string) (fs.File, error) {
	return f.OpenContext(context.Background(), name)
}

// OpenContext opens name with reads bound to ctx. Object bodies are
// fetched lazily on first read and the returned file supports Seek
// through ranged GETs.
func (f *FS) OpenContext(ctx context.Context, name string) (fs.File, error) {
	info, err := f.StatContext(ctx, name)
	if err != nil {
		if pe, ok := err.(*fs.PathError); ok {
			pe.Op = "open"
		}
		return nil, err
	}
	if info.IsDir() {
		return &dirFile{info: info}, nil
	}
	return &object{
		fs:   f,
		ctx:  ctx,
		key:  f.key(name),
		info: info,
	}, nil
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
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

type object struct {
	fs     *FS
	ctx    context.Context
	key    string
	info   fs.FileInfo
	offset int64
	body   io.ReadCloser
}

func (o *object) Stat() (fs.FileInfo, error) { return o.info, nil }

func (o *object) Read(p []byte) (int, error) {
	if o.offset >= o.info.Size() {
		return 0, io.EOF
	}
	if o.body == nil {
		input := &s3.GetObjectInput{
			Bucket: aws.String(o.fs.bucket),
			Key:    aws.String(o.key),
		}
		if o.offset > 0 {
			input.Range = aws.String(fmt.Sprintf("bytes=%d-", o.offset))
		}
		out, err := o.fs.client.GetObject(o.ctx, input)
		if err != nil {
			return 0, &fs.PathError{Op: "read", Path: o.key, Err: err}
		}
		o.body = out.Body
	}

	n, err := o.body.Read(p)
	o.offset += int64(n)
	return n, err
}

func (o *object) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = o.offset + offset
	case io.SeekEnd:
		next = o.info.Size() + offset
	default:
		return 0, fmt.Errorf("s3fs: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("s3fs: negative position %d", next)
	}
	if next != o.offset {
		o.closeBody()
		o.offset = next
	}
	return next, nil
}

func (o *object) Close() error {
	o.closeBody()
	return nil
}

func (o *object) closeBody() {
	if o.body != nil {
		o.body.Close()
		o.body = nil
	}
}

type dirFile struct {
	info fs.FileInfo
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.Name(), Err: fs.ErrInvalid}
}
func (d *dirFile) Close() error { return nil }

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) Mode() fs.FileMode  { return 0o444 }
func (i fileInfo) ModTime() time.Time { return i.modTime }
func (i fileInfo) IsDir() bool        { return false }
func (i fileInfo) Sys() any           { return nil }

type dirInfo struct {
	name string
}

func (i dirInfo) Name() string       { return i.name }
func (i dirInfo) Size() int64        { return 0 }
func (i dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (i dirInfo) ModTime() time.Time { return time.Time{} }
func (i dirInfo) IsDir() bool        { return true }
func (i dirInfo) Sys() any           { return nil }
