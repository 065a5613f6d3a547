package fulfilment

import (
	"context"
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/domain/access"
	"github.com/fulfildesk/backend/internal/domain/attachment"
	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"github.com/fulfildesk/backend/internal/domain/identity"
	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttachmentServiceConfig holds configuration for the attachment service
type AttachmentServiceConfig struct {
	// UploadURLExpiry is the duration for which upload URLs are valid
	UploadURLExpiry time.Duration
	// DownloadURLExpiry is the duration for which download URLs are valid
	DownloadURLExpiry time.Duration
}

// DefaultAttachmentServiceConfig returns the default configuration
func DefaultAttachmentServiceConfig() AttachmentServiceConfig {
	return AttachmentServiceConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: 1 * time.Hour,
	}
}

// AttachmentService issues presigned URLs for uploading and downloading
// files. Linking a file to its owner happens in the services that create
// orders, fulfilments, disputes and chat messages.
type AttachmentService struct {
	attachmentRepo attachment.Repository
	orderRepo      fulfilment.OrderRepository
	storage        ObjectStorage
	config         AttachmentServiceConfig
	logger         *zap.Logger
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(
	attachmentRepo attachment.Repository,
	orderRepo fulfilment.OrderRepository,
	storage ObjectStorage,
	logger *zap.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		orderRepo:      orderRepo,
		storage:        storage,
		config:         DefaultAttachmentServiceConfig(),
		logger:         logger,
	}
}

// SetConfig sets the service configuration
func (s *AttachmentService) SetConfig(config AttachmentServiceConfig) {
	s.config = config
}

// RequestUpload records an unlinked file and returns a presigned PUT URL.
// The file stays unlinked until the caller references it from an order,
// fulfilment, dispute or chat message.
func (s *AttachmentService) RequestUpload(ctx context.Context, p identity.Principal, req RequestUploadRequest) (*RequestUploadResponse, error) {
	a, err := attachment.NewAttachment(p.UserID, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return nil, err
	}
	if err := s.attachmentRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, a.StorageKey, a.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		// the unlinked row is reclaimed by the orphan sweep
		s.logger.Error("Failed to generate upload URL",
			zap.String("attachment_id", a.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("UPLOAD_URL_FAILED", "Failed to generate upload URL")
	}

	return &RequestUploadResponse{
		AttachmentID: a.ID,
		UploadURL:    url,
		ExpiresAt:    expiresAt,
	}, nil
}

// DownloadURL returns a presigned GET URL. A linked file is visible to
// everyone who can read its order; an unlinked one only to its uploader.
func (s *AttachmentService) DownloadURL(ctx context.Context, p identity.Principal, id uuid.UUID) (*DownloadURLResponse, error) {
	a, err := s.authorizedAttachment(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if a.Status == attachment.StatusDeleted {
		return nil, shared.NewDomainError("ATTACHMENT_DELETED", "Attachment has been deleted")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, a.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to generate download URL",
			zap.String("attachment_id", a.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("DOWNLOAD_URL_FAILED", "Failed to generate download URL")
	}

	return &DownloadURLResponse{
		AttachmentID: a.ID,
		FileName:     a.FileName,
		ContentType:  a.ContentType,
		DownloadURL:  url,
		ExpiresAt:    expiresAt,
	}, nil
}

// Get returns the metadata of one file under the same rule as DownloadURL
func (s *AttachmentService) Get(ctx context.Context, p identity.Principal, id uuid.UUID) (*AttachmentResponse, error) {
	a, err := s.authorizedAttachment(ctx, p, id)
	if err != nil {
		return nil, err
	}
	resp := ToAttachmentResponse(a)
	return &resp, nil
}

// ListByOrder returns the linked files of an order
func (s *AttachmentService) ListByOrder(ctx context.Context, p identity.Principal, orderID uuid.UUID) ([]AttachmentResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeRead(p, order); err != nil {
		return nil, err
	}
	files, err := s.attachmentRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]AttachmentResponse, 0, len(files))
	for i := range files {
		out = append(out, ToAttachmentResponse(&files[i]))
	}
	return out, nil
}

func (s *AttachmentService) authorizedAttachment(ctx context.Context, p identity.Principal, id uuid.UUID) (*attachment.Attachment, error) {
	a, err := s.attachmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.OrderID == nil {
		if a.UploadedByUserID != p.UserID {
			return nil, access.ErrReadDenied
		}
		return a, nil
	}
	order, err := s.orderRepo.FindByID(ctx, *a.OrderID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeRead(p, order); err != nil {
		return nil, err
	}
	return a, nil
}
