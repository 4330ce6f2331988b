package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/config"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".odt":  "application/vnd.oasis.opendocument.text",
	".rtf":  "application/rtf",
	".txt":  "text/plain",
}

// StorageService keeps the original bytes of uploaded documents. Keys are
// generated on save and never reused.
type StorageService interface {
	SaveFile(ctx context.Context, file *multipart.FileHeader, prefix string) (string, error)
	ReadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// ValidateUploadExtension returns the lowercase extension of filename or
// ErrUnsupportedFileType.
func ValidateUploadExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
	return ext, nil
}

func newStorageKey(prefix, ext string) string {
	return fmt.Sprintf("%s_%s%s", prefix, uuid.New().String(), ext)
}

// NewStorageService picks the backend named in cfg.
func NewStorageService(ctx context.Context, cfg config.StorageConfig) (StorageService, error) {
	switch cfg.Backend {
	case "", "local":
		local := NewLocalStorage(cfg.UploadPath)
		if err := local.EnsureUploadDir(); err != nil {
			return nil, err
		}
		return local, nil
	case "s3", "r2":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

type LocalStorage struct {
	uploadPath string
}

func NewLocalStorage(uploadPath string) *LocalStorage {
	return &LocalStorage{
		uploadPath: uploadPath,
	}
}

func (s *LocalStorage) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// SaveFile implements StorageService.
func (s *LocalStorage) SaveFile(_ context.Context, file *multipart.FileHeader, prefix string) (string, error) {
	ext, err := ValidateUploadExtension(file.Filename)
	if err != nil {
		return "", err
	}

	key := newStorageKey(prefix, ext)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(s.path(key))
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return key, nil
}

// ReadFile implements StorageService.
func (s *LocalStorage) ReadFile(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// DeleteFile implements StorageService.
func (s *LocalStorage) DeleteFile(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.uploadPath, filepath.Base(key))
}

type s3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage stores documents in an S3 bucket. A custom endpoint makes it
// work with S3 compatible stores such as Cloudflare R2.
func NewS3Storage(ctx context.Context, cfg config.S3Config) (StorageService, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3_BUCKET is required for the s3 storage backend")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Storage{client: client, bucket: cfg.Bucket}, nil
}

// SaveFile implements StorageService.
func (s *s3Storage) SaveFile(ctx context.Context, file *multipart.FileHeader, prefix string) (string, error) {
	ext, err := ValidateUploadExtension(file.Filename)
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	key := newStorageKey(prefix, ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(allowedExtensions[ext]),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return key, nil
}

// ReadFile implements StorageService.
func (s *s3Storage) ReadFile(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// DeleteFile implements StorageService.
func (s *s3Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
