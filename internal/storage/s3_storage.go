package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/pkg/logger"
)

const (
	productImageFolder = "products"
	presignExpiry      = 15 * time.Minute
)

var ErrUnsupportedContentType = errors.New("content type is not an allowed image type")

// imageExtensions maps each accepted content type to the extension stored in
// the object key.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImagePresigner issues upload URLs for product images. *S3Storage satisfies it.
type ImagePresigner interface {
	PresignProductImage(ctx context.Context, filename, contentType string) (*PresignedUpload, error)
}

type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
	baseURL string
}

type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	FileURL   string    `json:"file_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewS3Storage(cfg config.S3Config) *S3Storage {
	var awsCfg aws.Config

	// If credentials are provided, use them. Otherwise, use default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}
	} else {
		loaded, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
		if err != nil {
			logger.Warn("Failed to load default AWS config, uploads may fail", map[string]interface{}{
				"error": err.Error(),
			})
			loaded = aws.Config{Region: cfg.Region}
		}
		awsCfg = loaded
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// PresignProductImage returns a presigned PUT URL for a new product image and
// the public URL the image will be served from once uploaded.
func (s *S3Storage) PresignProductImage(ctx context.Context, filename, contentType string) (*PresignedUpload, error) {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return nil, ErrUnsupportedContentType
	}
	if ext == ".jpg" && strings.EqualFold(filepath.Ext(filename), ".jpeg") {
		ext = ".jpeg"
	}

	key := fmt.Sprintf("%s/%s%s", productImageFolder, uuid.NewString(), ext)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PresignedUpload{
		UploadURL: req.URL,
		FileURL:   s.fileURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(presignExpiry),
	}, nil
}

func (s *S3Storage) fileURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
