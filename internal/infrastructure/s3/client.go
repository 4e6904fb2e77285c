package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/entities"
)

// Client mirrors downloaded media into a MinIO/S3 bucket
type Client struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewClient creates a new S3/MinIO client
func NewClient(cfg *config.S3Config, logger zerolog.Logger) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &Client{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		logger:    logger.With().Str("component", "media_mirror").Logger(),
		now:       time.Now,
	}, nil
}

// EnsureBucket creates bucket if it doesn't exist and sets public read policy
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	c.logger.Info().Str("bucket", c.bucket).Msg("created S3 bucket")

	if err := c.client.SetBucketPolicy(ctx, c.bucket, publicReadPolicy(c.bucket)); err != nil {
		c.logger.Warn().Err(err).Msg("failed to set public bucket policy, files may not be publicly accessible")
	}
	return nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, bucket)
}

// UploadMedia stores data under media/{owner}/{YYYY}/{MM}/{DD}/{media_id}{ext}
func (c *Client) UploadMedia(ctx context.Context, owner string, mediaID int64, contentType string, data []byte) (*entities.MirroredMedia, error) {
	objectKey := c.ObjectKey(owner, mediaID, contentType)

	_, err := c.client.PutObject(ctx, c.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload media to S3: %w", err)
	}

	media := &entities.MirroredMedia{
		URL:         c.PublicURL(objectKey),
		ObjectKey:   objectKey,
		ContentType: contentType,
		Size:        len(data),
	}
	c.logger.Debug().
		Int64("media_id", mediaID).
		Str("object_key", objectKey).
		Str("url", media.URL).
		Msg("uploaded media to S3")

	return media, nil
}

// ObjectKey builds the storage key for a media object
func (c *Client) ObjectKey(owner string, mediaID int64, contentType string) string {
	now := c.now().UTC()
	return fmt.Sprintf(
		"media/%s/%d/%02d/%02d/%d%s",
		owner,
		now.Year(),
		now.Month(),
		now.Day(),
		mediaID,
		extension(contentType),
	)
}

// PublicURL returns public URL for the given object key
func (c *Client) PublicURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucket, objectKey)
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ""
	}
}

var _ deps.MediaUploader = (*Client)(nil)
