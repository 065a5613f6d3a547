package fulfilment

import (
	"context"
	"time"
)

// ObjectStorage is the blob store holding uploaded files.
// It is implemented by infrastructure/storage (S3 or the local stub).
type ObjectStorage interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject removes a blob; deleting a missing blob is not an error
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists reports whether a blob was uploaded under storageKey
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}
