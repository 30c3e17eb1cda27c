package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/iliyamo/backend-scaffold/internal/config"
)

// UploadResult describes an object stored in the media store.
type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// MediaUploader moves a local file to the media store.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (*UploadResult, error)
}

// ErrUploaderDisabled is returned when no media store is configured.
var ErrUploaderDisabled = errors.New("media storage is not configured")

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader uploads files to an S3-compatible bucket.  The local file is
// removed after every attempt, successful or not.
type S3Uploader struct {
	client ObjectPutter
	cfg    config.StorageConfig
	now    func() time.Time
}

// NewS3Uploader builds the S3 client from cfg using static credentials.
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig) (*S3Uploader, error) {
	if !cfg.Enabled {
		return nil, ErrUploaderDisabled
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3UploaderWithClient(client, cfg), nil
}

// NewS3UploaderWithClient wires an existing client.
func NewS3UploaderWithClient(client ObjectPutter, cfg config.StorageConfig) *S3Uploader {
	return &S3Uploader{client: client, cfg: cfg, now: time.Now}
}

// Upload stores localPath and returns where it ended up.  An empty path
// returns (nil, nil).
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	if localPath == "" {
		return nil, nil
	}
	defer func() { _ = os.Remove(localPath) }()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	key := u.objectKey(localPath)
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath)))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	if u.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.Timeout)
		defer cancel()
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String(ctype),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	return &UploadResult{URL: u.objectURL(key), Key: key, Size: st.Size(), ContentType: ctype}, nil
}

func (u *S3Uploader) objectKey(localPath string) string {
	d := u.now().UTC()
	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	prefix := strings.Trim(u.cfg.KeyPrefix, "/")
	key := fmt.Sprintf("%d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), name)
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

func (u *S3Uploader) objectURL(key string) string {
	switch {
	case u.cfg.PublicURL != "":
		return strings.TrimRight(u.cfg.PublicURL, "/") + "/" + key
	case u.cfg.Endpoint != "":
		return strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
	}
}
