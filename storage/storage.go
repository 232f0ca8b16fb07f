package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when no object exists under the requested key
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for absolute keys or keys that climb out of the store
	ErrInvalidKey = errors.New("invalid object key")
)

// Storage interface for blob storage operations
type Storage interface {
	// Put stores data under key, replacing any previous object
	Put(ctx context.Context, key string, data io.Reader) error

	// Get retrieves the object stored under key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3 bucket is required for S3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewStorageFromEnv creates the document storage from environment variables.
// Local storage defaults to the documents directory.
func NewStorageFromEnv() (Storage, error) {
	storageType := os.Getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local"
	}

	cfg := StorageConfig{
		Type:         StorageType(storageType),
		LocalPath:    getEnv("STORAGE_LOCAL_PATH", "documents"),
		S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
		S3Region:     os.Getenv("AWS_REGION"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
	if cfg.Type == StorageTypeS3 && cfg.S3Bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
	}

	return NewStorage(cfg)
}

// ImportFile copies a file from the local filesystem into s under
// prefix/<file name> and returns the key
func ImportFile(ctx context.Context, s Storage, path, prefix string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	key := cleanKey(filepath.Join(prefix, filepath.Base(path)))
	if err := s.Put(ctx, key, file); err != nil {
		return "", err
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ContentType determines content type from a file name
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// cleanKey normalizes an object key for backends that use flat key spaces
func cleanKey(key string) string {
	key = filepath.ToSlash(filepath.Clean(key))
	return strings.TrimPrefix(key, "/")
}
