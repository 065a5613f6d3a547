package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ fulfilmentapp.ObjectStorage = (*StubObjectStorage)(nil)

// StubObjectStorage hands out fake URLs and remembers deletions. It backs
// local development and tests where no bucket exists.
type StubObjectStorage struct {
	BaseURL string

	mu      sync.Mutex
	deleted map[string]bool
}

// NewStubObjectStorage creates a stub rooted at https://storage.example.com
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{BaseURL: "https://storage.example.com", deleted: make(map[string]bool)}
}

func (s *StubObjectStorage) signed(op, key string, expiresIn time.Duration) (string, time.Time) {
	exp := time.Now().Add(expiresIn)
	q := url.Values{"expires": {exp.UTC().Format(time.RFC3339)}}
	return s.BaseURL + "/" + op + "/" + key + "?" + q.Encode(), exp
}

// GenerateUploadURL implements ObjectStorage
func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	u, exp := s.signed("upload", storageKey, expiresIn)
	return u, exp, nil
}

// GenerateDownloadURL implements ObjectStorage
func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	u, exp := s.signed("download", storageKey, expiresIn)
	return u, exp, nil
}

// DeleteObject records the deletion
func (s *StubObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[storageKey] = true
	return nil
}

// ObjectExists reports true for every key not deleted through the stub
func (s *StubObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.deleted[storageKey], nil
}

// New selects the adapter named by cfg.Provider
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (fulfilmentapp.ObjectStorage, error) {
	if cfg.Provider != "s3" {
		logger.Warn("Using stub object storage, uploaded files are not persisted")
		return NewStubObjectStorage(), nil
	}
	s3, err := NewS3ObjectStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("Using S3 object storage", zap.String("bucket", s3.Bucket()), zap.String("endpoint", cfg.Endpoint))
	return s3, nil
}
