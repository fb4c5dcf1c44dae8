package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const uploadURLExpiry = 5 * time.Minute

// S3Config holds the staging bucket settings
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// ObjectStore is the photo staging bucket
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// S3Store is an ObjectStore backed by S3 or an S3-compatible service
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Store creates the staging bucket client. Static keys are used when
// set, the default credential chain otherwise.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}
	return request.URL, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get staged object %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete staged object %s: %w", key, err)
	}
	return nil
}

// PhotoService handles profile photo uploads. Clients either post the file
// directly or put it into the staging bucket with a pre-signed URL and then
// complete the upload; the gateway forwards it to the backend either way.
type PhotoService struct {
	store    ObjectStore
	uploads  UploadStore
	profiles *ProfileService
}

// NewPhotoService creates a new photo service. store may be nil, which
// disables staged uploads.
func NewPhotoService(store ObjectStore, uploads UploadStore, profiles *ProfileService) *PhotoService {
	return &PhotoService{
		store:    store,
		uploads:  uploads,
		profiles: profiles,
	}
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// UploadURL issues a pre-signed PUT URL for a new staged photo
func (s *PhotoService) UploadURL(ctx context.Context, userID int64, filename, contentType string) (*UploadResponse, error) {
	if s.store == nil {
		return nil, apperr.ErrPhotoStorageDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.InvalidArg("content_type must be an image type")
	}

	filename, ext := photoFilename(filename)

	// {user_id}/{uuid}{ext}
	key := fmt.Sprintf("%d/%s%s", userID, uuid.New().String(), ext)

	url, err := s.store.PresignPut(ctx, key, contentType, uploadURLExpiry)
	if err != nil {
		return nil, err
	}

	upload := &models.StagedUpload{
		Key:         key,
		UserID:      userID,
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		return nil, err
	}

	return &UploadResponse{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}

// CompleteUpload forwards a staged photo to the backend and removes it from
// the staging bucket
func (s *PhotoService) CompleteUpload(ctx context.Context, userID int64, key string) (*models.Photo, error) {
	if s.store == nil {
		return nil, apperr.ErrPhotoStorageDisabled
	}

	upload, err := s.uploads.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if upload.UserID != userID {
		return nil, apperr.ErrInvalidStagingKey
	}
	if upload.CompletedAt != nil {
		return nil, apperr.ErrUploadCompleted
	}

	body, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFailedPrecondition, "staged photo has not been uploaded", err)
	}
	defer body.Close()

	photo, err := s.profiles.AddPhoto(ctx, userID, upload.Filename, body)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.MarkCompleted(ctx, key, photo.ID, time.Now()); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("key", key).Msg("Failed to mark staged upload completed")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("key", key).Msg("Failed to delete staged photo")
	}

	return photo, nil
}

// Upload forwards a photo posted directly to the gateway
func (s *PhotoService) Upload(ctx context.Context, userID int64, filename string, r io.Reader) (*models.Photo, error) {
	filename, _ = photoFilename(filename)
	return s.profiles.AddPhoto(ctx, userID, filename, r)
}

// photoFilename strips directories from a client filename and returns it with
// its lower-cased extension, .jpg when it has none
func photoFilename(name string) (string, string) {
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		name = ""
	}
	ext := strings.ToLower(path.Ext(name))
	if ext == "" || ext == "." {
		ext = ".jpg"
	}
	if name == "" {
		name = "photo" + ext
	}
	return name, ext
}
