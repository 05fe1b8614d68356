package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultRegion = "us-east-1"

var ErrNotConfigured = errors.New("object storage is not configured")

// Publisher mirrors committed output files somewhere outside the local data dir.
type Publisher interface {
	Publish(ctx context.Context, prefix string, files []string) error
}

type minioPublisher struct {
	client *minio.Client
	bucket string
	logger *logger_i.Logger
}

// NewMinioPublisher connects to an S3 compatible endpoint and makes sure the bucket exists.
func NewMinioPublisher(ctx context.Context, settings config.S3Settings, transport http.RoundTripper) (Publisher, error) {
	if !settings.Enabled() {
		return nil, ErrNotConfigured
	}
	logger := logger_i.NewLogger("publisher_minio")

	endpoint, secure := settings.Endpoint, settings.UseSSL
	if u, err := url.Parse(settings.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = secure || u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(settings.AccessKey, settings.SecretKey, ""),
		Secure:    secure,
		Region:    defaultRegion,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	p := &minioPublisher{client: client, bucket: settings.Bucket, logger: logger}
	if err := p.ensureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("artifact publisher ready", "s3", settings)
	return p, nil
}

func (p *minioPublisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: defaultRegion}); err != nil {
		return fmt.Errorf("create bucket %s: %w", p.bucket, err)
	}
	return nil
}

func (p *minioPublisher) Publish(ctx context.Context, prefix string, files []string) error {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("publish_minio", time.Since(start))
	}()

	for _, file := range files {
		key := ObjectKey(prefix, file)
		_, err := p.client.FPutObject(ctx, p.bucket, key, file, minio.PutObjectOptions{
			ContentType: contentType(file),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		p.logger.Debug("published", "bucket", p.bucket, "key", key)
	}
	return nil
}

// ObjectKey places a local file under prefix using its base name.
func ObjectKey(prefix, file string) string {
	return path.Join(strings.Trim(prefix, "/"), filepath.Base(file))
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".zip":
		return "application/zip"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}

type noopPublisher struct{}

// Noop is used when no object storage is configured.
func Noop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, []string) error {
	return nil
}
